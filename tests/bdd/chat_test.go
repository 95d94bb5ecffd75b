package bdd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cucumber/godog"
)

// 以下示例 Step function,用in-memory model驗證聊天流程的行為
type chatRoom struct {
	id       string
	members  []string
	messages []string
}

var (
	loggedIn       = map[string]string{}
	rooms          = map[string]*chatRoom{}
	unread         = map[string]map[string]int{}
	lastResolved   string
	resolveCounter int
)

func pairKeyOf(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

func resolveRoom(a, b string) *chatRoom {
	key := pairKeyOf(a, b)
	if room, ok := rooms[key]; ok {
		return room
	}
	resolveCounter++
	room := &chatRoom{
		id:      fmt.Sprintf("room-%d", resolveCounter),
		members: []string{a, b},
	}
	rooms[key] = room
	return room
}

func token(user, token string) error {
	loggedIn[user] = token
	return nil
}

func resolveDirectChat(a, b string) error {
	if loggedIn[a] == "" || loggedIn[b] == "" {
		return fmt.Errorf("user not logged in")
	}
	lastResolved = resolveRoom(a, b).id
	return nil
}

func chatRoomShouldContain(a, b string) error {
	room := rooms[pairKeyOf(a, b)]
	if room == nil {
		return fmt.Errorf("room not found for %s and %s", a, b)
	}
	for _, want := range []string{a, b} {
		found := false
		for _, m := range room.members {
			if m == want {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("%s is not a member", want)
		}
	}
	return nil
}

func resolveAgainReturnsSameRoom() error {
	before := lastResolved
	var a, b string
	for key, room := range rooms {
		if room.id == before {
			parts := strings.SplitN(key, "|", 2)
			a, b = parts[0], parts[1]
		}
	}
	if err := resolveDirectChat(a, b); err != nil {
		return err
	}
	if lastResolved != before {
		return fmt.Errorf("expected same room %s, got %s", before, lastResolved)
	}
	return nil
}

func directRoomExists(_, _ int, a, b string) error {
	resolveRoom(a, b)
	return nil
}

func sendMessage(sender, content string) error {
	for _, room := range rooms {
		for _, m := range room.members {
			if m != sender {
				continue
			}
			room.messages = append(room.messages, content)
			for _, other := range room.members {
				if other == sender {
					continue
				}
				if unread[other] == nil {
					unread[other] = map[string]int{}
				}
				unread[other][room.id]++
			}
			return nil
		}
	}
	return fmt.Errorf("%s has no room to send to", sender)
}

func shouldReceiveMessage(user, content string) error {
	for _, room := range rooms {
		for _, m := range room.members {
			if m != user {
				continue
			}
			for _, msg := range room.messages {
				if msg == content {
					return nil
				}
			}
		}
	}
	return fmt.Errorf("%s did not receive %q", user, content)
}

func unreadCountShouldBe(user string, want int) error {
	total := 0
	for _, n := range unread[user] {
		total += n
	}
	if total != want {
		return fmt.Errorf("expected unread %d, got %d", want, total)
	}
	return nil
}

func markConversationRead(user string) error {
	unread[user] = map[string]int{}
	return nil
}

func resetChatState() {
	loggedIn = map[string]string{}
	rooms = map[string]*chatRoom{}
	unread = map[string]map[string]int{}
	lastResolved = ""
	resolveCounter = 0
}

// InitializeChatServiceScenario 註冊 Gherkin 與 Step Definition 的對應
func InitializeChatServiceScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		resetChatState()
		return c, nil
	})

	ctx.Step(`^"([^"]*)" 已登入並取得 Token "([^"]*)"$`, token)
	ctx.Step(`^"([^"]*)" 對 "([^"]*)" 發起聊天$`, resolveDirectChat)
	ctx.Step(`^聊天房間應該包含 "([^"]*)" 和 "([^"]*)"$`, chatRoomShouldContain)
	ctx.Step(`^再次發起時回傳同一間聊天房間$`, resolveAgainReturnsSameRoom)
	ctx.Step(`^已存在 (\d+)對(\d+) 聊天房間 with "([^"]*)" and "([^"]*)"$`, directRoomExists)
	ctx.Step(`^"([^"]*)" 發送訊息 "([^"]*)"$`, sendMessage)
	ctx.Step(`^"([^"]*)" 應該收到訊息 "([^"]*)"$`, shouldReceiveMessage)
	ctx.Step(`^"([^"]*)" 的未讀數應該是 (\d+)$`, unreadCountShouldBe)
	ctx.Step(`^"([^"]*)" 將聊天室標為已讀$`, markConversationRead)
}

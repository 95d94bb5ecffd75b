package client

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"job_board_chat_service/internal/chat/domain"
	"job_board_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// EntryState optimistic entry lifecycle
type EntryState string

// entry states
const (
	StatePending   EntryState = "pending"
	StateConfirmed EntryState = "confirmed"
	StateFailed    EntryState = "failed"
)

// Entry 畫面上的一則訊息,pending時Message.ID是暫時的temp key
type Entry struct {
	Message  domain.Message
	TempKey  string
	State    EntryState
	// LocalTime pending/failed排序用,confirm後改用server的CreatedAt
	LocalTime int64
}

// matchKey 推播比對用,push payload裡拿不到nonce,只能靠sender+content
type matchKey struct {
	senderID string
	content  string
}

// Reconciler 把本地樂觀訊息與server事件合併成單一畫面狀態。
// 所有操作idempotent,重複事件或亂序事件不會讓狀態變壞。
type Reconciler struct {
	selfID string

	mu      sync.Mutex
	entries []*Entry
	byID    map[string]*Entry
	byTemp  map[string]*Entry
	// pending 同一組(sender,content)可能排隊多筆,FIFO比對
	pending map[matchKey][]string
}

// NewReconciler create Reconciler for one conversation view
func NewReconciler(selfID string) *Reconciler {
	return &Reconciler{
		selfID:  selfID,
		byID:    make(map[string]*Entry),
		byTemp:  make(map[string]*Entry),
		pending: make(map[matchKey][]string),
	}
}

// tempKeyOf temp key由sender+content+nonce決定,重送同一筆不會產生兩個entry
func tempKeyOf(senderID, content, nonce string) string {
	sum := sha256.Sum256([]byte(senderID + "|" + content + "|" + nonce))
	return "temp-" + hex.EncodeToString(sum[:8])
}

// Seed 以history重建畫面,通常在進入聊天室或resync時呼叫
func (r *Reconciler) Seed(history []domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range history {
		if _, ok := r.byID[msg.ID]; ok {
			continue
		}
		e := &Entry{Message: msg, State: StateConfirmed}
		r.entries = append(r.entries, e)
		r.byID[msg.ID] = e
	}
}

// Submit 樂觀插入一筆pending訊息,回傳temp key供後續confirm/fail
func (r *Reconciler) Submit(content, nonce string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tempKey := tempKeyOf(r.selfID, content, nonce)
	if _, ok := r.byTemp[tempKey]; ok {
		// 同一筆重複submit,沿用原entry
		return tempKey
	}

	now := time.Now().UnixMilli()
	e := &Entry{
		Message: domain.Message{
			ID:       tempKey,
			SenderID: r.selfID,
			Content:  content,
			Type:     domain.MessageText,
		},
		TempKey:   tempKey,
		State:     StatePending,
		LocalTime: now,
	}
	r.entries = append(r.entries, e)
	r.byTemp[tempKey] = e

	k := matchKey{senderID: r.selfID, content: content}
	r.pending[k] = append(r.pending[k], tempKey)
	return tempKey
}

// ConfirmSend pipeline回應成功,把pending entry換成server版本
func (r *Reconciler) ConfirmSend(tempKey string, msg *domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmLocked(tempKey, msg)
}

func (r *Reconciler) confirmLocked(tempKey string, msg *domain.Message) {
	e, ok := r.byTemp[tempKey]
	if !ok {
		// 已經被推播confirm過,只需確保server訊息在場
		r.upsertLocked(msg)
		return
	}
	if other, ok := r.byID[msg.ID]; ok && other != e {
		// 推播先到,server訊息已有自己的entry,移除pending的重複那筆
		r.removeLocked(e)
		return
	}

	e.Message = *msg
	e.State = StateConfirmed
	delete(r.byTemp, tempKey)
	r.byID[msg.ID] = e
	r.unqueuePending(matchKey{senderID: msg.SenderID, content: msg.Content}, tempKey)
}

// FailSend pipeline回應失敗,entry標為failed留在原位等retry
func (r *Reconciler) FailSend(tempKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byTemp[tempKey]
	if !ok || e.State == StateConfirmed {
		return
	}
	e.State = StateFailed
	// failed不再參與推播比對,retry時重新排隊
	r.unqueuePending(matchKey{senderID: e.Message.SenderID, content: e.Message.Content}, tempKey)
}

// Retry failed entry重新標為pending,temp key不變
func (r *Reconciler) Retry(tempKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byTemp[tempKey]
	if !ok || e.State != StateFailed {
		return false
	}
	e.State = StatePending
	e.LocalTime = time.Now().UnixMilli()
	k := matchKey{senderID: e.Message.SenderID, content: e.Message.Content}
	r.pending[k] = append(r.pending[k], tempKey)
	return true
}

// Discard 放棄failed/pending entry,從畫面移除
func (r *Reconciler) Discard(tempKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byTemp[tempKey]
	if !ok {
		return
	}
	r.unqueuePending(matchKey{senderID: e.Message.SenderID, content: e.Message.Content}, tempKey)
	r.removeLocked(e)
}

// Apply 套用一筆server事件,未知型別與對不上的事件皆no-op
func (r *Reconciler) Apply(event domain.Event) {
	switch event.Type {
	case domain.EventMessageNew, domain.EventMessageEdited, domain.EventMessageDeleted:
	default:
		return
	}

	var msg domain.Message
	if err := event.Decode(&msg); err != nil {
		logger.Log.Error("reconciler decode event failed",
			zap.String("event", string(event.Type)), zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.Type {
	case domain.EventMessageNew:
		r.applyNewLocked(&msg)
	case domain.EventMessageEdited:
		if e, ok := r.byID[msg.ID]; ok {
			e.Message.Content = msg.Content
			e.Message.EditedAt = msg.EditedAt
		}
	case domain.EventMessageDeleted:
		if e, ok := r.byID[msg.ID]; ok {
			e.Message.DeletedAt = msg.DeletedAt
		}
	}
}

func (r *Reconciler) applyNewLocked(msg *domain.Message) {
	// 已知id,重複推播no-op
	if _, ok := r.byID[msg.ID]; ok {
		return
	}

	// 自己發的訊息優先跟pending比對,比對到就地confirm而不是多一筆
	if msg.SenderID == r.selfID {
		k := matchKey{senderID: msg.SenderID, content: msg.Content}
		if queue := r.pending[k]; len(queue) > 0 {
			r.confirmLocked(queue[0], msg)
			return
		}
	}

	r.upsertLocked(msg)
}

// upsertLocked server訊息直接入場(別人發的,或比對不上的自己的訊息)
func (r *Reconciler) upsertLocked(msg *domain.Message) {
	if _, ok := r.byID[msg.ID]; ok {
		return
	}
	e := &Entry{Message: *msg, State: StateConfirmed}
	r.entries = append(r.entries, e)
	r.byID[msg.ID] = e
}

func (r *Reconciler) removeLocked(e *Entry) {
	for i, cur := range r.entries {
		if cur == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	if e.TempKey != "" {
		delete(r.byTemp, e.TempKey)
	}
	if e.State == StateConfirmed {
		delete(r.byID, e.Message.ID)
	}
}

func (r *Reconciler) unqueuePending(k matchKey, tempKey string) {
	queue := r.pending[k]
	for i, key := range queue {
		if key == tempKey {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(r.pending, k)
	} else {
		r.pending[k] = queue
	}
}

// sortKey confirm前用本地時間,confirm後用server時間,同時間用id決勝負
func sortKey(e *Entry) (int64, string) {
	if e.State == StateConfirmed {
		return e.Message.CreatedAt, e.Message.ID
	}
	return e.LocalTime, e.Message.ID
}

// Entries 依時間排序的完整快照,含pending/failed
func (r *Reconciler) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := make([]*Entry, len(r.entries))
	copy(sorted, r.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, idi := sortKey(sorted[i])
		tj, idj := sortKey(sorted[j])
		if ti != tj {
			return ti < tj
		}
		return idi < idj
	})

	out := make([]Entry, len(sorted))
	for i, e := range sorted {
		out[i] = *e
	}
	return out
}

// Messages 排序後的訊息view,畫面渲染用
func (r *Reconciler) Messages() []domain.Message {
	entries := r.Entries()
	msgs := make([]domain.Message, len(entries))
	for i, e := range entries {
		msgs[i] = e.Message
	}
	return msgs
}

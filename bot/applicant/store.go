package applicant

import "sync"

// Store is the single owner of applicant records. Implementations must be
// safe for concurrent use; callers never hold live references to stored
// records.
type Store interface {
	// Get returns a copy of the record for chatID.
	Get(chatID int64) (Record, bool)
	// GetOrCreate returns a copy of the record for chatID, creating an
	// empty one first when absent.
	GetOrCreate(chatID int64) Record
	// Update applies fn to the record for chatID under the store lock.
	// It reports whether a record existed.
	Update(chatID int64, fn func(*Record)) bool
	// FindByTxRef scans records for a matching transaction reference.
	FindByTxRef(ref string) (Record, bool)

	// BindNotice maps a moderation-channel message id to the applicant it
	// describes, so later replies to that notice can be resolved.
	BindNotice(messageID int, chatID int64)
	// ResolveNotice returns the applicant bound to a channel message id.
	ResolveNotice(messageID int) (int64, bool)

	// PaymentLock returns the per-applicant mutex held across the
	// payment precondition check and the gateway call.
	PaymentLock(chatID int64) *sync.Mutex
}

type memoryStore struct {
	mu      sync.RWMutex
	records map[int64]*Record
	notices map[int]int64
	payMu   map[int64]*sync.Mutex
}

// NewMemoryStore constructs the in-memory Store implementation.
func NewMemoryStore() Store {
	return &memoryStore{
		records: make(map[int64]*Record),
		notices: make(map[int]int64),
		payMu:   make(map[int64]*sync.Mutex),
	}
}

func (s *memoryStore) Get(chatID int64) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[chatID]; ok {
		return *r, true
	}
	return Record{}, false
}

func (s *memoryStore) GetOrCreate(chatID int64) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[chatID]
	if !ok {
		r = &Record{ChatID: chatID}
		s.records[chatID] = r
	}
	return *r
}

func (s *memoryStore) Update(chatID int64, fn func(*Record)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[chatID]
	if !ok {
		return false
	}
	fn(r)
	return true
}

func (s *memoryStore) FindByTxRef(ref string) (Record, bool) {
	if ref == "" {
		return Record{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Linear scan is fine at the expected scale.
	for _, r := range s.records {
		if r.TxRef == ref {
			return *r, true
		}
	}
	return Record{}, false
}

func (s *memoryStore) BindNotice(messageID int, chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices[messageID] = chatID
}

func (s *memoryStore) ResolveNotice(messageID int) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chatID, ok := s.notices[messageID]
	return chatID, ok
}

func (s *memoryStore) PaymentLock(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.payMu[chatID]
	if !ok {
		m = &sync.Mutex{}
		s.payMu[chatID] = m
	}
	return m
}

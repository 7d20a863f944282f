package applicant

import (
	"sync"
	"testing"
)

func TestGetOrCreateReturnsSameRecord(t *testing.T) {
	s := NewMemoryStore()

	rec := s.GetOrCreate(42)
	if rec.ChatID != 42 {
		t.Fatalf("chat id = %d, want 42", rec.ChatID)
	}
	if rec.Step != StepIdle {
		t.Fatalf("new record step = %d, want idle", rec.Step)
	}

	s.Update(42, func(r *Record) { r.FullName = "Abebe" })
	again := s.GetOrCreate(42)
	if again.FullName != "Abebe" {
		t.Fatalf("GetOrCreate lost state: %+v", again)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.GetOrCreate(7)

	rec, ok := s.Get(7)
	if !ok {
		t.Fatal("expected record")
	}
	rec.FullName = "mutated locally"

	fresh, _ := s.Get(7)
	if fresh.FullName != "" {
		t.Fatalf("store mutated through returned copy: %q", fresh.FullName)
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	s := NewMemoryStore()
	if s.Update(99, func(r *Record) { r.Step = 3 }) {
		t.Fatal("Update reported success for a missing record")
	}
}

func TestFindByTxRef(t *testing.T) {
	s := NewMemoryStore()
	s.GetOrCreate(1)
	s.GetOrCreate(2)
	s.Update(2, func(r *Record) { r.TxRef = "tx-2-123-abcd" })

	rec, ok := s.FindByTxRef("tx-2-123-abcd")
	if !ok || rec.ChatID != 2 {
		t.Fatalf("FindByTxRef = %+v, %v", rec, ok)
	}
	if _, ok := s.FindByTxRef("tx-unknown"); ok {
		t.Fatal("found a record for an unknown reference")
	}
	if _, ok := s.FindByTxRef(""); ok {
		t.Fatal("empty reference must never match")
	}
}

func TestNoticeMapping(t *testing.T) {
	s := NewMemoryStore()
	s.BindNotice(555, 42)

	chatID, ok := s.ResolveNotice(555)
	if !ok || chatID != 42 {
		t.Fatalf("ResolveNotice = %d, %v", chatID, ok)
	}
	if _, ok := s.ResolveNotice(556); ok {
		t.Fatal("resolved an unbound notice")
	}
}

func TestPaymentLockIsStablePerChat(t *testing.T) {
	s := NewMemoryStore()
	if s.PaymentLock(1) != s.PaymentLock(1) {
		t.Fatal("same chat must yield the same lock")
	}
	if s.PaymentLock(1) == s.PaymentLock(2) {
		t.Fatal("different chats must not share a lock")
	}
}

func TestConcurrentUpdates(t *testing.T) {
	s := NewMemoryStore()
	s.GetOrCreate(1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(1, func(r *Record) { r.PaymentAmount++ })
		}()
	}
	wg.Wait()

	rec, _ := s.Get(1)
	if rec.PaymentAmount != 50 {
		t.Fatalf("amount = %d after 50 increments", rec.PaymentAmount)
	}
}

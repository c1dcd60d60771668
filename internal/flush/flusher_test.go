package flush

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/neyyar-dairy/fieldsync/internal/domain"
	"github.com/neyyar-dairy/fieldsync/internal/netmon"
	"github.com/neyyar-dairy/fieldsync/internal/queue"
	"github.com/neyyar-dairy/fieldsync/internal/rpc"
)

// countingCaller records every delivered transaction id and scripts failures
// per id. Safe for concurrent use.
type countingCaller struct {
	mu       sync.Mutex
	failWith map[string]error // keyed by p_client_txn_id
	order    []string
	perTxn   map[string]int
}

func newCountingCaller() *countingCaller {
	return &countingCaller{failWith: map[string]error{}, perTxn: map[string]int{}}
}

func (c *countingCaller) Call(_ context.Context, _ string, params map[string]any) (rpc.Result, error) {
	txn, _ := params["p_client_txn_id"].(string)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = append(c.order, txn)
	c.perTxn[txn]++
	if err, ok := c.failWith[txn]; ok {
		return rpc.Result{}, err
	}
	return rpc.Result{Data: []byte(`{}`)}, nil
}

func (c *countingCaller) deliveries(txn string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perTxn[txn]
}

func newFlushStore(t *testing.T) *queue.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.QueueEntry{}, &domain.DeadLetter{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	// One connection: concurrent flushes interleave at the statement level
	// without tripping SQLite's shared-cache busy errors.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return queue.NewStore(db)
}

func enqueuePayments(t *testing.T, s *queue.Store, txns ...string) {
	t.Helper()
	for _, txn := range txns {
		p := domain.PaymentPayload{ShopID: 1, AmountPaise: 1000, ClientTxnID: txn}
		if _, err := s.Enqueue(context.Background(), p); err != nil {
			t.Fatalf("enqueue %s: %v", txn, err)
		}
	}
}

func TestFlush_DeliversInEnqueueOrder(t *testing.T) {
	store := newFlushStore(t)
	caller := newCountingCaller()
	enqueuePayments(t, store, "first", "second", "third")

	report, err := New(caller, store, zerolog.Nop()).Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if report.Succeeded != 3 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	want := []string{"first", "second", "third"}
	for i, txn := range caller.order {
		if txn != want[i] {
			t.Fatalf("delivery order %v, want %v", caller.order, want)
		}
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("queue should be empty, got %d", n)
	}
}

func TestFlush_TransientFailure_KeepsEntryAndContinues(t *testing.T) {
	store := newFlushStore(t)
	caller := newCountingCaller()
	caller.failWith["b"] = &rpc.NetworkError{Procedure: "collect_payment", Err: errors.New("flaky")}
	enqueuePayments(t, store, "a", "b", "c")

	report, err := New(caller, store, zerolog.Nop()).Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if report.Attempted != 3 || report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// The failed entry stays pending and is claimable again.
	entries, err := store.ListPending(context.Background())
	if err != nil || len(entries) != 1 {
		t.Fatalf("pending after flush: %v (%d entries)", err, len(entries))
	}
	if entries[0].ClientTxnID != "b" {
		t.Fatalf("wrong survivor: %q", entries[0].ClientTxnID)
	}

	delete(caller.failWith, "b")
	report2, err := New(caller, store, zerolog.Nop()).Flush(context.Background())
	if err != nil || report2.Succeeded != 1 {
		t.Fatalf("second flush should drain the survivor: %+v err=%v", report2, err)
	}
}

func TestFlush_BusinessRejection_DeadLetters(t *testing.T) {
	store := newFlushStore(t)
	caller := newCountingCaller()
	caller.failWith["rejected"] = &rpc.BusinessError{Code: "P0001", Message: "insufficient stock"}
	enqueuePayments(t, store, "ok", "rejected")

	report, err := New(caller, store, zerolog.Nop()).Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if report.Succeeded != 1 || report.DeadLettered != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("rejected entry must leave the queue, %d remain", n)
	}

	dls, err := store.ListDeadLetters(context.Background(), 10)
	if err != nil || len(dls) != 1 {
		t.Fatalf("dead letters: %v (%d)", err, len(dls))
	}
	if dls[0].ClientTxnID != "rejected" {
		t.Fatalf("wrong dead letter: %+v", dls[0])
	}
}

func TestFlush_DuplicateSuppressed_CountsAsSuccess(t *testing.T) {
	store := newFlushStore(t)
	caller := newCountingCaller()
	caller.failWith["dup"] = rpc.ErrDuplicateSuppressed
	enqueuePayments(t, store, "dup")

	report, err := New(caller, store, zerolog.Nop()).Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("duplicate suppression should drain the entry: %+v", report)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("entry should be removed, %d remain", n)
	}
}

func TestFlush_CorruptEntry_DeadLettersInsteadOfWedging(t *testing.T) {
	store := newFlushStore(t)
	enqueuePayments(t, store, "good")

	// An unknown kind cannot decode, which is how a corrupt row presents.
	entries, _ := store.ListPending(context.Background())
	entry := entries[0]
	entry.Kind = "no-such-kind"

	caller := newCountingCaller()
	f := New(caller, store, zerolog.Nop())
	if got := f.deliver(context.Background(), entry); got != deliveryRejected {
		t.Fatalf("expected corrupt entry to be rejected, got %v", got)
	}
	dls, _ := store.ListDeadLetters(context.Background(), 10)
	if len(dls) != 1 {
		t.Fatalf("expected corrupt entry dead-lettered, got %d", len(dls))
	}
}

func TestFlush_ConcurrentFlushes_DeliverEachEntryOnce(t *testing.T) {
	store := newFlushStore(t)
	caller := newCountingCaller()
	txns := []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8"}
	enqueuePayments(t, store, txns...)

	f := New(caller, store, zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Flush(context.Background()); err != nil {
				t.Errorf("flush: %v", err)
			}
		}()
	}
	wg.Wait()

	for _, txn := range txns {
		if n := caller.deliveries(txn); n != 1 {
			t.Fatalf("transaction %s delivered %d times", txn, n)
		}
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("queue should be drained, %d remain", n)
	}
}

func TestFlush_CancelledContext_StopsEarly(t *testing.T) {
	store := newFlushStore(t)
	caller := newCountingCaller()
	enqueuePayments(t, store, "x", "y")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := New(caller, store, zerolog.Nop()).Flush(ctx)
	if err != nil {
		t.Fatalf("flush with cancelled ctx: %v", err)
	}
	if report.Attempted != 0 {
		t.Fatalf("cancelled flush should not attempt deliveries: %+v", report)
	}
}

func TestRunner_FlushesOnReconnect(t *testing.T) {
	store := newFlushStore(t)
	caller := newCountingCaller()
	enqueuePayments(t, store, "queued-offline")

	mon := netmon.NewMonitor(false, zerolog.Nop())
	runner := NewRunner(New(caller, store, zerolog.Nop()), mon, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	// Give the runner a moment to subscribe, then simulate reconnect.
	time.Sleep(20 * time.Millisecond)
	mon.SetOnline(true)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := store.Count(context.Background()); n == 0 {
			if caller.deliveries("queued-offline") != 1 {
				t.Fatalf("expected exactly one delivery")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("runner never flushed after reconnect")
}

func TestRunner_KickCoalesces(t *testing.T) {
	store := newFlushStore(t)
	runner := NewRunner(New(newCountingCaller(), store, zerolog.Nop()), netmon.NewMonitor(true, zerolog.Nop()), 0, zerolog.Nop())

	// Must not block no matter how many times it is called before Run drains.
	for i := 0; i < 100; i++ {
		runner.Kick()
	}
}

package assistant

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesab/internal/core"
	"hesab/internal/intent"
	"hesab/internal/llm"
	"hesab/internal/log"
	"hesab/internal/seed"
	"hesab/internal/services"
	"hesab/internal/session"
	"hesab/internal/storage/memory"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

const chatID = "chat-1"

type fixture struct {
	store   *memory.Store
	ledger  *services.LedgerService
	history *session.MemoryStore
	engine  *Engine
	user    core.User
}

func newFixture(t *testing.T, resolver intent.Resolver) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	_, err := seed.Seed(ctx, store)
	require.NoError(t, err)

	ledger := services.NewLedgerService(store, nil, log.Discard())
	history := session.NewMemoryStore(20, 100, time.Hour)
	engine := NewEngine(ledger, resolver, history, Options{
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	}, log.Discard())

	user, err := store.UpsertUser(ctx, core.User{ExternalID: chatID, DisplayName: "سارا"})
	require.NoError(t, err)
	return &fixture{store: store, ledger: ledger, history: history, engine: engine, user: user}
}

func (f *fixture) account(t *testing.T, name string, balance int64) core.Account {
	t.Helper()
	a, err := f.ledger.CreateAccount(context.Background(), core.Account{
		UserID: f.user.ID, Name: name, Kind: core.Bank, Balance: balance,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) balance(t *testing.T, id string) int64 {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), f.user.ID, id)
	require.NoError(t, err)
	return a.Balance
}

func (f *fixture) transactions(t *testing.T) []core.Transaction {
	t.Helper()
	txs, err := f.store.ListTransactions(context.Background(), core.TransactionQuery{UserID: f.user.ID})
	require.NoError(t, err)
	return txs
}

func (f *fixture) send(text string) Result {
	return f.engine.Handle(context.Background(), Message{ExternalID: chatID, Text: text})
}

// replying resolves every message through a model that always answers reply.
func replying(reply string) intent.Resolver {
	return intent.NewModelResolver(llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		return reply, nil
	}), 0.6, 4000, log.Discard())
}

func TestEngine_NoAccountGuidance(t *testing.T) {
	f := newFixture(t, intent.NewRuleResolver())

	res := f.send("add 50000 expense lunch")

	assert.True(t, res.Success)
	assert.Equal(t, MsgNoAccount, res.Message)
	assert.Empty(t, f.transactions(t))
}

func TestEngine_TransferInsufficientBalance(t *testing.T) {
	f := newFixture(t, replying(`{"action":"transfer_money","amount":200000,"account":"Blue","toAccount":"Mellat"}`))
	a := f.account(t, "Blue Bank", 100_000)
	b := f.account(t, "Mellat", 0)

	res := f.send("200 هزار از بلو به ملت ببر")

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "کافی نیست")
	assert.Contains(t, res.Message, "100,000 تومان")
	assert.Equal(t, int64(100_000), f.balance(t, a.ID))
	assert.Equal(t, int64(0), f.balance(t, b.ID))
	assert.Empty(t, f.transactions(t))
}

func TestEngine_UnknownActionFailsOpen(t *testing.T) {
	raw := `{"action":"unknown_action"}`
	f := newFixture(t, replying(raw))
	a := f.account(t, "Blue Bank", 100_000)

	res := f.send("یه کاری بکن")

	assert.True(t, res.Success)
	assert.Equal(t, raw, res.Message)
	assert.Equal(t, int64(100_000), f.balance(t, a.ID))
	assert.Empty(t, f.transactions(t))
}

func TestEngine_RejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"zero amount", `{"action":"add_transaction","amount":0,"title":"غذا","type":"expense"}`, MsgInvalidAmount},
		{"negative amount", `{"action":"add_transaction","amount":-5000,"title":"غذا","type":"expense"}`, MsgInvalidAmount},
		{"transfer without destination", `{"action":"transfer","amount":1000,"fromAccount":"Blue"}`, MsgMissingDestination},
		{"delete without id", `{"action":"delete_transaction"}`, MsgIncompleteAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, replying(tt.reply))
			a := f.account(t, "Blue Bank", 100_000)

			res := f.send("انجام بده")

			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Message)
			assert.NotContains(t, res.Text(), `"action"`)
			assert.Equal(t, int64(100_000), f.balance(t, a.ID))
			assert.Empty(t, f.transactions(t))

			turns := f.history.Get(f.user.ID, 10)
			require.Len(t, turns, 2)
			assert.Equal(t, tt.reply, turns[1].Text)
		})
	}
}

func TestEngine_AddTransactionResolvesAccount(t *testing.T) {
	f := newFixture(t, replying("```json\n"+`{"action":"add_transaction","amount":"215 هزار","title":"غذا","category":"غذا","account":"blue","type":"expense"}`+"\n```"))
	mellat := f.account(t, "Mellat", 5_000_000)
	blue := f.account(t, "Blue Bank", 1_000_000)

	res := f.send("215 هزار هزینه غذا از بلو")

	require.True(t, res.Success, res.Message)
	assert.Contains(t, res.Message, "Blue Bank")
	assert.Contains(t, res.Message, "785,000 تومان")
	assert.Equal(t, int64(785_000), f.balance(t, blue.ID))
	assert.Equal(t, int64(5_000_000), f.balance(t, mellat.ID))

	txs := f.transactions(t)
	require.Len(t, txs, 1)
	assert.True(t, testNow.Equal(txs[0].Date), txs[0].Date)
	cat, err := f.store.GetCategory(context.Background(), txs[0].CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "غذا", cat.Name)
}

func TestEngine_DefaultsToHighestBalance(t *testing.T) {
	f := newFixture(t, replying(`{"action":"add_transaction","amount":1000,"title":"x","type":"income","account":"saman"}`))
	low := f.account(t, "Blue Bank", 10)
	high := f.account(t, "Mellat", 900)

	res := f.send("1000 درآمد")

	require.True(t, res.Success, res.Message)
	assert.Equal(t, int64(1_900), f.balance(t, high.ID))
	assert.Equal(t, int64(10), f.balance(t, low.ID))
}

func TestEngine_AIUnavailable(t *testing.T) {
	resolver := intent.NewModelResolver(llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		return "", llm.ErrUnavailable
	}), 0.6, 4000, log.Discard())
	f := newFixture(t, resolver)

	res := f.send("گزارش این ماه")

	assert.False(t, res.Success)
	assert.Equal(t, MsgAIUnavailable, res.Message)
	assert.Equal(t, "❌ "+MsgAIUnavailable, res.Text())
	turns := f.history.Get(f.user.ID, 0)
	require.Len(t, turns, 1)
	assert.Equal(t, session.RoleUser, turns[0].Role)
}

func TestEngine_Timeout(t *testing.T) {
	resolver := intent.NewModelResolver(llm.CompleterFunc(func(ctx context.Context, _ llm.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), 0.6, 4000, log.Discard())
	f := newFixture(t, resolver)
	f.engine.timeout = 10 * time.Millisecond

	res := f.send("سلام")
	assert.Equal(t, MsgAIUnavailable, res.Message)
}

func TestEngine_HistoryAndPrompt(t *testing.T) {
	var requests []llm.Request
	var mu sync.Mutex
	resolver := intent.NewModelResolver(llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, req)
		return "سلام! چه کمکی از دستم بر میاد؟", nil
	}), 0.6, 4000, log.Discard())
	f := newFixture(t, resolver)

	first := f.send("سلام")
	assert.True(t, first.Success)
	assert.Equal(t, "سلام! چه کمکی از دستم بر میاد؟", first.Message)

	f.account(t, "Blue Bank", 2_500_000)
	f.send("خوبی؟")

	require.Len(t, requests, 2)
	assert.Empty(t, requests[0].Messages[:len(requests[0].Messages)-1])
	assert.Contains(t, requests[0].System, "هیچ حسابی ندارد")
	assert.Contains(t, requests[0].System, "- نام: سارا")
	assert.Contains(t, requests[0].System, "1403/12/25")

	second := requests[1]
	require.Len(t, second.Messages, 3)
	assert.Equal(t, "سلام", second.Messages[0].Text)
	assert.Equal(t, llm.RoleAssistant, second.Messages[1].Role)
	assert.Contains(t, second.System, "Blue Bank (2,500,000 تومان)")

	assert.Len(t, f.history.Get(f.user.ID, 0), 4)
}

func TestEngine_SerializesSameUser(t *testing.T) {
	var inFlight, maxInFlight int32
	resolver := intent.NewModelResolver(llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return `{"action":"add_transaction","amount":100,"title":"x","type":"expense"}`, nil
	}), 0.6, 4000, log.Discard())
	f := newFixture(t, resolver)
	a := f.account(t, "Blue Bank", 1_000)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.send("100 هزینه")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
	assert.Equal(t, int64(500), f.balance(t, a.ID))
	assert.Empty(t, f.engine.locks.m)
}

func TestEngine_Welcome(t *testing.T) {
	f := newFixture(t, intent.NewRuleResolver())

	res := f.engine.Welcome(context.Background(), Message{ExternalID: "chat-2", DisplayName: "Ali"})
	require.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Message, "🤖 سلام Ali!"))
	assert.Contains(t, res.Message, "📅 امروز: 1403/12/25")

	res = f.engine.Welcome(context.Background(), Message{})
	assert.False(t, res.Success)
}

func TestEngine_Forget(t *testing.T) {
	f := newFixture(t, intent.NewRuleResolver())
	f.send("سلام")
	require.NotEmpty(t, f.history.Get(f.user.ID, 0))

	require.NoError(t, f.engine.Forget(context.Background(), chatID))
	assert.Empty(t, f.history.Get(f.user.ID, 0))
}

func TestEngine_EmptyMessage(t *testing.T) {
	f := newFixture(t, intent.NewRuleResolver())
	res := f.send("   ")
	assert.False(t, res.Success)
	assert.Equal(t, MsgGenericError, res.Message)
}

func TestNewEngine_Panics(t *testing.T) {
	ledger := services.NewLedgerService(memory.New(), nil, log.Discard())
	assert.Panics(t, func() { NewEngine(ledger, nil, nil, Options{}, nil) })
	assert.Panics(t, func() { NewEngine(nil, intent.NewRuleResolver(), nil, Options{}, nil) })
}

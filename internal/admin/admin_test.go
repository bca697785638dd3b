package admin

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesab/internal/assistant"
	"hesab/internal/core"
	"hesab/internal/intent"
	"hesab/internal/log"
	"hesab/internal/seed"
	"hesab/internal/services"
	"hesab/internal/storage/memory"
)

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := seed.Seed(ctx, store)
	require.NoError(t, err)
	user, err := store.UpsertUser(ctx, core.User{ExternalID: "42"})
	require.NoError(t, err)
	require.NoError(t, store.CreateAccount(ctx, core.Account{ID: "a1", UserID: user.ID, Name: "Cash", Kind: core.Cash}))

	var out bytes.Buffer
	require.NoError(t, Reset(ctx, store, &out))

	accounts, err := store.ListAccounts(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Empty(t, accounts)
	cats, err := store.ListCategories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, cats, 8)
	assert.Contains(t, out.String(), "8 default categories seeded")
}

func TestREPL(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := seed.Seed(ctx, store)
	require.NoError(t, err)
	engine := assistant.NewEngine(services.NewLedgerService(store, nil, log.Discard()), intent.NewRuleResolver(), nil,
		assistant.Options{Location: time.UTC}, log.Discard())

	in := strings.NewReader("add 50000 expense lunch\n\n/reset\n/quit\nnever read\n")
	var out bytes.Buffer
	err = REPL(ctx, engine, assistant.Message{ExternalID: "cli", DisplayName: "Admin"}, in, &out)
	require.NoError(t, err)

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "🤖 سلام Admin!"), got)
	assert.Contains(t, got, assistant.MsgNoAccount)
	assert.Contains(t, got, "تاریخچه گفتگو پاک شد")
	assert.NotContains(t, got, "never read")
}

func TestREPL_MissingUser(t *testing.T) {
	err := REPL(context.Background(), nil, assistant.Message{}, strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "reset", "seed", "chat"} {
		assert.True(t, names[want], want)
	}

	t.Setenv("DATA_BACKEND", "memory")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"reset"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	root.SetArgs([]string{"reset", "--yes"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "database reset")
}

package chatlink_test

import (
	"errors"
	"fmt"
	"testing"

	"matchlink/backend/internal/chatlink"
	"matchlink/backend/internal/ledger"
	"matchlink/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moveAbort(module string, code int) string {
	return fmt.Sprintf(`MoveAbort(MoveLocation { module: ModuleId { address: a1, name: Identifier(%q) }, function: 2, instruction: 11, function_name: Some("entry") }, %d) in command 0`, module, code)
}

func TestTranslateAbort(t *testing.T) {
	cases := []struct {
		name string
		text string
		kind chatlink.ErrorKind
		key  string
		code int
	}{
		{"chat exists", moveAbort("integration", 6), chatlink.KindContractAbort, chatlink.MsgChatExists, 6},
		{"match inactive", moveAbort("integration", 7), chatlink.KindInactiveMatch, chatlink.MsgMatchInactive, 7},
		{"not participant", moveAbort("core", 1), chatlink.KindUnauthorized, chatlink.MsgNotParticipant, 1},
		{"other code", moveAbort("seal_policies", 42), chatlink.KindContractAbort, chatlink.MsgContractAbort, 42},
		{"abort code form", "execution failed: abort code: 7", chatlink.KindInactiveMatch, chatlink.MsgMatchInactive, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, ok := chatlink.TranslateAbort(tc.text)
			require.True(t, ok)
			assert.Equal(t, tc.kind, e.Kind)
			assert.Equal(t, tc.key, e.MessageKey)
			assert.Equal(t, tc.code, e.AbortCode)
		})
	}
}

func TestTranslateAbort_NamesModule(t *testing.T) {
	e, ok := chatlink.TranslateAbort(moveAbort("seal_policies", 42))
	require.True(t, ok)
	assert.Contains(t, e.Message, "seal_policies")
}

func TestTranslateAbort_NoCode(t *testing.T) {
	e, ok := chatlink.TranslateAbort("InsufficientGas")
	assert.False(t, ok)
	assert.Nil(t, e)
}

func TestKindOf(t *testing.T) {
	cases := map[string]struct {
		err  error
		kind chatlink.ErrorKind
	}{
		"nil":          {nil, ""},
		"structured":   {chatlink.NewUnauthorizedError("0x1", "0x2"), chatlink.KindUnauthorized},
		"wrapped":      {fmt.Errorf("outer: %w", chatlink.NewInactiveMatchError("0x1", models.MatchBlocked)), chatlink.KindInactiveMatch},
		"transport":    {fmt.Errorf("dial: %w", ledger.ErrTransport), chatlink.KindNetwork},
		"missing":      {notFound("0x1"), chatlink.KindNotFound},
		"rpc abort":    {&ledger.RPCError{Method: "sui_executeTransactionBlock", Code: -32002, Message: moveAbort("integration", 6)}, chatlink.KindContractAbort},
		"rpc inactive": {&ledger.RPCError{Method: "sui_executeTransactionBlock", Code: -32002, Message: moveAbort("integration", 7)}, chatlink.KindInactiveMatch},
		"rpc other":    {&ledger.RPCError{Method: "sui_getObject", Code: -32602, Message: "invalid params"}, chatlink.KindContractAbort},
		"unknown":      {errors.New("boom"), chatlink.KindInternal},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.kind, chatlink.KindOf(tc.err))
		})
	}
}

func TestDescribe(t *testing.T) {
	t.Run("keeps structured errors", func(t *testing.T) {
		orig := chatlink.NewNotFoundError("0x1", "match does not exist")
		assert.Same(t, orig, chatlink.Describe(fmt.Errorf("wrap: %w", orig)))
	})

	t.Run("translates rpc aborts", func(t *testing.T) {
		e := chatlink.Describe(&ledger.RPCError{Message: moveAbort("core", 1)})
		assert.Equal(t, chatlink.MsgNotParticipant, e.MessageKey)
		assert.Equal(t, 1, e.AbortCode)
	})

	t.Run("network", func(t *testing.T) {
		e := chatlink.Describe(fmt.Errorf("post: %w", ledger.ErrTransport))
		assert.Equal(t, chatlink.KindNetwork, e.Kind)
		assert.Equal(t, chatlink.MsgNetwork, e.MessageKey)
		assert.ErrorIs(t, e, ledger.ErrTransport)
	})

	t.Run("internal", func(t *testing.T) {
		e := chatlink.Describe(errors.New("boom"))
		assert.Equal(t, chatlink.KindInternal, e.Kind)
		assert.Equal(t, -1, e.AbortCode)
	})
}

func TestError_Message(t *testing.T) {
	e := chatlink.NewInactiveMatchError("0xm1", models.MatchPending)
	assert.Equal(t, "INACTIVE_MATCH: match is pending, chat creation requires an active match (match=0xm1)", e.Error())
}

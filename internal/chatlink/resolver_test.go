package chatlink_test

import (
	"context"
	"errors"
	"testing"

	"matchlink/backend/internal/chatlink"
	"matchlink/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_BothExistFromCreationEvent(t *testing.T) {
	// Arrange
	l := new(MockLedger)
	l.On("QueryEvents", chatCreatedType).Return(eventPage(
		event(chatCreatedType, map[string]any{"match_id": "0xother", "chat_id": "0xc9"}),
		event(chatCreatedType, map[string]any{"match_id": "0xM1", "chat_id": "0xc1", "allowlist_id": "0xl1"}),
	), nil).Once()
	r := chatlink.NewResolver(l, testContracts)

	// Act
	res, err := r.Resolve(context.Background(), "0xm1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, chatlink.ActionNone, res.Action)
	assert.Equal(t, "0xc1", res.ChatRoomID)
	assert.Equal(t, "0xl1", res.ChatAllowlistID)
	l.AssertExpectations(t)
	l.AssertNotCalled(t, "QueryEvents", allowlistCreatedType)
	l.AssertNotCalled(t, "GetObject", "0xm1")
}

func TestResolve_AllowlistFromItsOwnEvent(t *testing.T) {
	l := new(MockLedger)
	l.On("QueryEvents", chatCreatedType).Return(eventPage(
		event(chatCreatedType, map[string]any{"match_id": "0xm1", "chat_id": "0xc1"}),
	), nil)
	l.On("QueryEvents", allowlistCreatedType).Return(eventPage(
		event(allowlistCreatedType, map[string]any{"chat_id": "0xc1", "allowlist_id": "0xl1"}),
	), nil)
	r := chatlink.NewResolver(l, testContracts)

	res, err := r.Resolve(context.Background(), "0xm1")

	require.NoError(t, err)
	assert.Equal(t, chatlink.ActionNone, res.Action)
	assert.Equal(t, "0xl1", res.ChatAllowlistID)
}

func TestResolve_ChatWithoutAllowlist(t *testing.T) {
	l := new(MockLedger)
	l.On("QueryEvents", chatCreatedType).Return(eventPage(
		event(chatCreatedType, map[string]any{"match_id": "0xm1", "chat_id": "0xc1"}),
	), nil)
	l.On("QueryEvents", allowlistCreatedType).Return(eventPage(), nil)
	l.On("GetDynamicFieldObject", testContracts.AllowlistRegistryID, "0xc1").Return(nil, notFound("0xc1"))
	r := chatlink.NewResolver(l, testContracts)

	res, err := r.Resolve(context.Background(), "0xm1")

	require.NoError(t, err)
	assert.Equal(t, chatlink.ActionCreateAllowlist, res.Action)
	assert.Equal(t, "0xc1", res.ChatRoomID)
	assert.Empty(t, res.ChatAllowlistID)
	l.AssertNotCalled(t, "GetObject", "0xm1")
}

func TestResolve_NoChatActiveMatch(t *testing.T) {
	l := new(MockLedger)
	l.On("QueryEvents", chatCreatedType).Return(eventPage(), nil)
	l.On("GetDynamicFieldObject", testContracts.MatchChatRegistryID, "0xm1").Return(nil, notFound("0xm1"))
	l.On("GetObject", "0xm1").Return(matchObject("0xm1", "0xa", "0xb", 1), nil)
	r := chatlink.NewResolver(l, testContracts)

	res, err := r.Resolve(context.Background(), "0xm1")

	require.NoError(t, err)
	assert.Equal(t, chatlink.ActionCreateChat, res.Action)
	assert.Empty(t, res.ChatRoomID)
	require.NotNil(t, res.Match)
	assert.Equal(t, models.Match{ID: "0xm1", UserA: "0xa", UserB: "0xb", Status: models.MatchActive}, *res.Match)
}

func TestResolve_InactiveMatch(t *testing.T) {
	for _, status := range []int{0, 3} {
		l := new(MockLedger)
		l.On("QueryEvents", chatCreatedType).Return(eventPage(), nil)
		l.On("GetDynamicFieldObject", testContracts.MatchChatRegistryID, "0xm1").Return(nil, notFound("0xm1"))
		l.On("GetObject", "0xm1").Return(matchObject("0xm1", "0xa", "0xb", status), nil)
		r := chatlink.NewResolver(l, testContracts)

		res, err := r.Resolve(context.Background(), "0xm1")

		assert.Nil(t, res)
		assert.True(t, chatlink.IsInactiveMatch(err), "status %d", status)
	}
}

func TestResolve_FallsBackToRegistryWhenEventsMissing(t *testing.T) {
	l := new(MockLedger)
	l.On("QueryEvents", chatCreatedType).Return(eventPage(), nil)
	l.On("GetDynamicFieldObject", testContracts.MatchChatRegistryID, "0xm1").Return(fieldObject("0xc1"), nil)
	l.On("QueryEvents", allowlistCreatedType).Return(eventPage(), nil)
	l.On("GetDynamicFieldObject", testContracts.AllowlistRegistryID, "0xc1").Return(fieldObject("0xl1"), nil)
	r := chatlink.NewResolver(l, testContracts)

	res, err := r.Resolve(context.Background(), "0xm1")

	require.NoError(t, err)
	assert.Equal(t, chatlink.ActionNone, res.Action)
	assert.Equal(t, "0xc1", res.ChatRoomID)
	assert.Equal(t, "0xl1", res.ChatAllowlistID)
}

func TestResolve_QueryFailureSurfacesUnchanged(t *testing.T) {
	boom := errors.New("rpc down")
	l := new(MockLedger)
	l.On("QueryEvents", chatCreatedType).Return(nil, boom).Once()
	r := chatlink.NewResolver(l, testContracts)

	_, err := r.Resolve(context.Background(), "0xm1")

	assert.Same(t, boom, err)
	l.AssertNumberOfCalls(t, "QueryEvents", 1)
}

func TestResolve_MissingMatchIsNotFound(t *testing.T) {
	l := new(MockLedger)
	l.On("QueryEvents", chatCreatedType).Return(eventPage(), nil)
	l.On("GetDynamicFieldObject", testContracts.MatchChatRegistryID, "0xm404").Return(nil, notFound("0xm404"))
	l.On("GetObject", "0xm404").Return(nil, notFound("0xm404"))
	r := chatlink.NewResolver(l, testContracts)

	_, err := r.Resolve(context.Background(), "0xm404")

	assert.True(t, chatlink.IsNotFound(err))
	assert.Equal(t, chatlink.KindNotFound, chatlink.Describe(err).Kind)
}

func TestFetchMatch_StatusOutOfRange(t *testing.T) {
	l := new(MockLedger)
	l.On("GetObject", "0xm1").Return(matchObject("0xm1", "0xa", "0xb", 257), nil)
	r := chatlink.NewResolver(l, testContracts)

	match, err := r.FetchMatch(context.Background(), "0xm1")

	assert.Nil(t, match)
	assert.ErrorContains(t, err, "status 257")
}

func TestResolve_RequiresMatchID(t *testing.T) {
	r := chatlink.NewResolver(new(MockLedger), testContracts)
	_, err := r.Resolve(context.Background(), "")
	assert.Equal(t, chatlink.KindInvalidInput, chatlink.KindOf(err))
}

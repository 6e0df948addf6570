package openseastream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterTypedDispatch(t *testing.T) {
	router := NewRouter()

	var listed []string
	router.OnItemListed(func(listing ItemListed) error {
		listed = append(listed, listing.Item.NftID)
		return nil
	})

	var sold int
	router.OnItemSold(func(ItemSold) error {
		sold++
		return nil
	})

	ev, err := DecodeMessage("item_listed",
		[]byte(`{"payload":{"item":{"nft_id":"a"},"maker":{"address":"0x1"},"event_timestamp":"t"}}`))
	require.NoError(t, err)

	require.NoError(t, router.Route(ev))
	assert.Equal(t, []string{"a"}, listed)
	assert.Zero(t, sold, "item_listed must not reach the item_sold handler")
}

func TestRouterWildcardSeesEverything(t *testing.T) {
	router := NewRouter()

	var all int
	router.On(EventAll, func(StreamEvent) error {
		all++
		return nil
	})

	listedBody := `{"payload":{"item":{"nft_id":"a"},"maker":{"address":"0x1"},"event_timestamp":"t"}}`
	soldBody := `{"payload":{"item":{"nft_id":"a"},"transaction":{"hash":"0x2"},"event_timestamp":"t"}}`

	for event, body := range map[string]string{"item_listed": listedBody, "item_sold": soldBody} {
		ev, err := DecodeMessage(event, []byte(body))
		require.NoError(t, err)
		require.NoError(t, router.Route(ev))
	}

	assert.Equal(t, 2, all)
}

func TestRouterHandlerErrorStopsDispatch(t *testing.T) {
	router := NewRouter()

	boom := errors.New("boom")
	router.On(EventItemListed, func(StreamEvent) error { return boom })

	var wildcard int
	router.On(EventAll, func(StreamEvent) error {
		wildcard++
		return nil
	})

	ev, err := DecodeMessage("item_listed",
		[]byte(`{"payload":{"item":{"nft_id":"a"},"maker":{"address":"0x1"},"event_timestamp":"t"}}`))
	require.NoError(t, err)

	assert.ErrorIs(t, router.Route(ev), boom)
	assert.Zero(t, wildcard)
}

func TestRouterUnmatchedEventIsNoop(t *testing.T) {
	router := NewRouter()

	ev, err := DecodeMessage("item_sold",
		[]byte(`{"payload":{"item":{"nft_id":"a"},"transaction":{"hash":"0x2"},"event_timestamp":"t"}}`))
	require.NoError(t, err)

	assert.NoError(t, router.Route(ev))
}

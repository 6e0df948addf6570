package openseastream

// Collection selects which slice of the marketplace feed a subscription
// receives: everything, one collection by slug, or one on-chain contract.
type Collection struct {
	kind    collectionKind
	slug    string
	chain   string
	address string
}

type collectionKind int

const (
	collectionAll collectionKind = iota
	collectionSlug
	collectionContract
)

// Topic strings understood by the server.
const (
	topicAllCollections   = "collection:*"
	topicCollectionPrefix = "collection:"
	topicContractPrefix   = "contract:"
)

// AllCollections targets every collection on the network.
func AllCollections() Collection {
	return Collection{kind: collectionAll}
}

// CollectionSlug targets a single collection. The slug is used verbatim,
// no normalization; correct casing is the caller's responsibility.
func CollectionSlug(slug string) Collection {
	return Collection{kind: collectionSlug, slug: slug}
}

// ContractAddress targets a specific contract on a chain.
func ContractAddress(chain, address string) Collection {
	return Collection{kind: collectionContract, chain: chain, address: address}
}

// Topic returns the channel topic string for the target. It never fails;
// an empty slug or malformed address is passed through as-is and is the
// server's concern.
func (c Collection) Topic() string {
	switch c.kind {
	case collectionSlug:
		return topicCollectionPrefix + c.slug
	case collectionContract:
		return topicContractPrefix + c.chain + ":" + c.address
	default:
		return topicAllCollections
	}
}

func (c Collection) String() string {
	return c.Topic()
}

// EventType discriminates the payload variants the feed emits. The wire
// value doubles as the channel message event string.
type EventType string

const (
	// EventAll matches every event kind. It is valid only as a
	// subscribe-time filter and never appears on a decoded message.
	EventAll EventType = "*"

	EventItemListed          EventType = "item_listed"
	EventItemSold            EventType = "item_sold"
	EventItemCancelled       EventType = "item_cancelled"
	EventItemTransferred     EventType = "item_transferred"
	EventItemReceivedOffer   EventType = "item_received_offer"
	EventItemReceivedBid     EventType = "item_received_bid"
	EventCollectionOffer     EventType = "collection_offer"
	EventTraitOffer          EventType = "trait_offer"
	EventItemMetadataUpdated EventType = "item_metadata_updated"
)

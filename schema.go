package openseastream

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Payload is one decoded event body. Exactly one concrete type exists per
// event kind the feed can emit; switch on the pointer type to filter:
//
//	switch p := ev.Payload.(type) {
//	case *ItemListed:
//		...
//	}
type Payload interface {
	eventType() EventType
	validate() error
}

// Item identifies the NFT an event concerns.
type Item struct {
	NftID     string       `json:"nft_id"`
	Permalink string       `json:"permalink"`
	Chain     Chain        `json:"chain"`
	Metadata  ItemMetadata `json:"metadata"`
}

// Chain names the ledger an item or event lives on.
type Chain struct {
	Name string `json:"name"`
}

type ItemMetadata struct {
	Name         string `json:"name"`
	ImageURL     string `json:"image_url"`
	AnimationURL string `json:"animation_url"`
	MetadataURL  string `json:"metadata_url"`
}

// Account is an EVM account participating in an event. Addresses are
// checksummed hex text, passed through verbatim.
type Account struct {
	Address string `json:"address"`
}

// PaymentToken describes the currency an order is denominated in.
type PaymentToken struct {
	Address  string          `json:"address"`
	Decimals int             `json:"decimals"`
	EthPrice decimal.Decimal `json:"eth_price"`
	UsdPrice decimal.Decimal `json:"usd_price"`
	Name     string          `json:"name"`
	Symbol   string          `json:"symbol"`
}

// Transaction points at the on-chain transaction behind an event.
type Transaction struct {
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
}

// CollectionInfo names the collection an event belongs to.
type CollectionInfo struct {
	Slug string `json:"slug"`
}

// CollectionCriteria scopes a collection-wide offer.
type CollectionCriteria struct {
	Slug string `json:"slug"`
}

// ContractCriteria scopes an offer to an asset contract.
type ContractCriteria struct {
	Address string `json:"address"`
}

// TraitCriteria scopes a trait offer to one trait of a collection.
type TraitCriteria struct {
	TraitName string `json:"trait_name"`
	TraitType string `json:"trait_type"`
}

// Trait is one metadata attribute of an item.
type Trait struct {
	TraitType   string          `json:"trait_type"`
	DisplayType string          `json:"display_type"`
	Value       json.RawMessage `json:"value"`
}

// ItemListed is emitted when an item is listed for sale.
type ItemListed struct {
	Item           Item            `json:"item"`
	Collection     CollectionInfo  `json:"collection"`
	Chain          Chain           `json:"chain"`
	EventTimestamp string          `json:"event_timestamp"`
	BasePrice      decimal.Decimal `json:"base_price"`
	PaymentToken   PaymentToken    `json:"payment_token"`
	Quantity       int             `json:"quantity"`
	ListingDate    string          `json:"listing_date"`
	ListingType    string          `json:"listing_type"`
	ExpirationDate string          `json:"expiration_date"`
	IsPrivate      bool            `json:"is_private"`
	Maker          Account         `json:"maker"`
	Taker          *Account        `json:"taker"`
	OrderHash      string          `json:"order_hash"`
}

func (*ItemListed) eventType() EventType { return EventItemListed }

func (p *ItemListed) validate() error {
	if p.Item.NftID == "" {
		return errMissingField("item.nft_id")
	}
	if p.Maker.Address == "" {
		return errMissingField("maker.address")
	}
	if p.EventTimestamp == "" {
		return errMissingField("event_timestamp")
	}
	return nil
}

// ItemSold is emitted when a listing is fulfilled.
type ItemSold struct {
	Item           Item            `json:"item"`
	Collection     CollectionInfo  `json:"collection"`
	Chain          Chain           `json:"chain"`
	EventTimestamp string          `json:"event_timestamp"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	PaymentToken   PaymentToken    `json:"payment_token"`
	Quantity       int             `json:"quantity"`
	ClosingDate    string          `json:"closing_date"`
	ListingType    string          `json:"listing_type"`
	IsPrivate      bool            `json:"is_private"`
	Maker          Account         `json:"maker"`
	Taker          Account         `json:"taker"`
	OrderHash      string          `json:"order_hash"`
	Transaction    Transaction     `json:"transaction"`
}

func (*ItemSold) eventType() EventType { return EventItemSold }

func (p *ItemSold) validate() error {
	if p.Item.NftID == "" {
		return errMissingField("item.nft_id")
	}
	if p.Transaction.Hash == "" {
		return errMissingField("transaction.hash")
	}
	if p.EventTimestamp == "" {
		return errMissingField("event_timestamp")
	}
	return nil
}

// ItemCancelled is emitted when a listing is withdrawn before fulfillment.
type ItemCancelled struct {
	Item           Item           `json:"item"`
	Collection     CollectionInfo `json:"collection"`
	Chain          Chain          `json:"chain"`
	EventTimestamp string         `json:"event_timestamp"`
	PaymentToken   PaymentToken   `json:"payment_token"`
	Quantity       int            `json:"quantity"`
	ListingType    string         `json:"listing_type"`
	IsPrivate      bool           `json:"is_private"`
	Transaction    Transaction    `json:"transaction"`
}

func (*ItemCancelled) eventType() EventType { return EventItemCancelled }

func (p *ItemCancelled) validate() error {
	if p.Item.NftID == "" {
		return errMissingField("item.nft_id")
	}
	if p.EventTimestamp == "" {
		return errMissingField("event_timestamp")
	}
	return nil
}

// ItemTransferred is emitted when an item changes hands on-chain.
type ItemTransferred struct {
	Item           Item           `json:"item"`
	Collection     CollectionInfo `json:"collection"`
	Chain          Chain          `json:"chain"`
	EventTimestamp string         `json:"event_timestamp"`
	FromAccount    Account        `json:"from_account"`
	ToAccount      Account        `json:"to_account"`
	Quantity       int            `json:"quantity"`
	Transaction    Transaction    `json:"transaction"`
}

func (*ItemTransferred) eventType() EventType { return EventItemTransferred }

func (p *ItemTransferred) validate() error {
	if p.Item.NftID == "" {
		return errMissingField("item.nft_id")
	}
	if p.FromAccount.Address == "" {
		return errMissingField("from_account.address")
	}
	if p.ToAccount.Address == "" {
		return errMissingField("to_account.address")
	}
	if p.EventTimestamp == "" {
		return errMissingField("event_timestamp")
	}
	return nil
}

// ItemReceivedOffer is emitted when an item receives an offer.
type ItemReceivedOffer struct {
	Item           Item            `json:"item"`
	Collection     CollectionInfo  `json:"collection"`
	Chain          Chain           `json:"chain"`
	EventTimestamp string          `json:"event_timestamp"`
	BasePrice      decimal.Decimal `json:"base_price"`
	PaymentToken   PaymentToken    `json:"payment_token"`
	Quantity       int             `json:"quantity"`
	CreatedDate    string          `json:"created_date"`
	ExpirationDate string          `json:"expiration_date"`
	Maker          Account         `json:"maker"`
	Taker          *Account        `json:"taker"`
	OrderHash      string          `json:"order_hash"`
}

func (*ItemReceivedOffer) eventType() EventType { return EventItemReceivedOffer }

func (p *ItemReceivedOffer) validate() error {
	if p.Item.NftID == "" {
		return errMissingField("item.nft_id")
	}
	if p.Maker.Address == "" {
		return errMissingField("maker.address")
	}
	if p.EventTimestamp == "" {
		return errMissingField("event_timestamp")
	}
	return nil
}

// ItemReceivedBid is emitted when an auctioned item receives a bid.
type ItemReceivedBid struct {
	Item           Item            `json:"item"`
	Collection     CollectionInfo  `json:"collection"`
	Chain          Chain           `json:"chain"`
	EventTimestamp string          `json:"event_timestamp"`
	BasePrice      decimal.Decimal `json:"base_price"`
	PaymentToken   PaymentToken    `json:"payment_token"`
	Quantity       int             `json:"quantity"`
	CreatedDate    string          `json:"created_date"`
	ExpirationDate string          `json:"expiration_date"`
	Maker          Account         `json:"maker"`
	Taker          *Account        `json:"taker"`
	OrderHash      string          `json:"order_hash"`
}

func (*ItemReceivedBid) eventType() EventType { return EventItemReceivedBid }

func (p *ItemReceivedBid) validate() error {
	if p.Item.NftID == "" {
		return errMissingField("item.nft_id")
	}
	if p.Maker.Address == "" {
		return errMissingField("maker.address")
	}
	if p.EventTimestamp == "" {
		return errMissingField("event_timestamp")
	}
	return nil
}

// CollectionOffer is emitted when an offer is placed on every item of a
// collection rather than a single item.
type CollectionOffer struct {
	Collection            CollectionInfo     `json:"collection"`
	Chain                 Chain              `json:"chain"`
	EventTimestamp        string             `json:"event_timestamp"`
	BasePrice             decimal.Decimal    `json:"base_price"`
	PaymentToken          PaymentToken       `json:"payment_token"`
	Quantity              int                `json:"quantity"`
	CreatedDate           string             `json:"created_date"`
	ExpirationDate        string             `json:"expiration_date"`
	Maker                 Account            `json:"maker"`
	OrderHash             string             `json:"order_hash"`
	CollectionCriteria    CollectionCriteria `json:"collection_criteria"`
	AssetContractCriteria ContractCriteria   `json:"asset_contract_criteria"`
}

func (*CollectionOffer) eventType() EventType { return EventCollectionOffer }

func (p *CollectionOffer) validate() error {
	if p.CollectionCriteria.Slug == "" && p.Collection.Slug == "" {
		return errMissingField("collection_criteria.slug")
	}
	if p.Maker.Address == "" {
		return errMissingField("maker.address")
	}
	if p.EventTimestamp == "" {
		return errMissingField("event_timestamp")
	}
	return nil
}

// TraitOffer is a collection offer narrowed to items carrying one trait.
type TraitOffer struct {
	Collection            CollectionInfo     `json:"collection"`
	Chain                 Chain              `json:"chain"`
	EventTimestamp        string             `json:"event_timestamp"`
	BasePrice             decimal.Decimal    `json:"base_price"`
	PaymentToken          PaymentToken       `json:"payment_token"`
	Quantity              int                `json:"quantity"`
	CreatedDate           string             `json:"created_date"`
	ExpirationDate        string             `json:"expiration_date"`
	Maker                 Account            `json:"maker"`
	OrderHash             string             `json:"order_hash"`
	CollectionCriteria    CollectionCriteria `json:"collection_criteria"`
	AssetContractCriteria ContractCriteria   `json:"asset_contract_criteria"`
	TraitCriteria         TraitCriteria      `json:"trait_criteria"`
}

func (*TraitOffer) eventType() EventType { return EventTraitOffer }

func (p *TraitOffer) validate() error {
	if p.TraitCriteria.TraitType == "" {
		return errMissingField("trait_criteria.trait_type")
	}
	if p.Maker.Address == "" {
		return errMissingField("maker.address")
	}
	if p.EventTimestamp == "" {
		return errMissingField("event_timestamp")
	}
	return nil
}

// ItemMetadataUpdated is emitted when an item's off-chain metadata changes.
type ItemMetadataUpdated struct {
	Item            Item           `json:"item"`
	Collection      CollectionInfo `json:"collection"`
	Chain           Chain          `json:"chain"`
	EventTimestamp  string         `json:"event_timestamp"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	ImagePreviewURL string         `json:"image_preview_url"`
	AnimationURL    string         `json:"animation_url"`
	BackgroundColor string         `json:"background_color"`
	MetadataURL     string         `json:"metadata_url"`
	Traits          []Trait        `json:"traits"`
}

func (*ItemMetadataUpdated) eventType() EventType { return EventItemMetadataUpdated }

func (p *ItemMetadataUpdated) validate() error {
	if p.Item.NftID == "" {
		return errMissingField("item.nft_id")
	}
	if p.EventTimestamp == "" {
		return errMissingField("event_timestamp")
	}
	return nil
}

func errMissingField(field string) error {
	return fmt.Errorf("missing required field %q", field)
}

package openseastream

import "net/url"

// Network selects the marketplace environment a client connects to.
type Network int

const (
	// Mainnet is the production event feed.
	Mainnet Network = iota

	// Testnet is the feed for the test networks.
	Testnet
)

const (
	mainnetEndpoint = "wss://stream.openseabeta.com/socket/websocket"
	testnetEndpoint = "wss://testnets-stream.openseabeta.com/socket/websocket"
)

// URL returns the websocket endpoint for the network. The returned URL
// carries no token; New appends it before connecting.
func (n Network) URL() string {
	switch n {
	case Testnet:
		return testnetEndpoint
	default:
		return mainnetEndpoint
	}
}

func (n Network) String() string {
	switch n {
	case Testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}

// withToken appends the API key to the endpoint as a `token` query
// parameter. Set rather than Add, so the result always carries exactly
// one token no matter what the endpoint already contained.
func withToken(endpoint, token string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

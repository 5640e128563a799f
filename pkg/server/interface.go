/*
Package server implements msgpack IPC for item price lookups.

The server reads a stream of msgpack maps from stdin and writes one msgpack
map per response to stdout. Logs never go to stdout, so the stream stays
clean for the client.

# IPC

Every request carries an ID, an action and, depending on the action, a
query and a limit:

	{"id": "req_001", "action": "lookup", "q": "하이포션"}
	{"id": "req_002", "action": "complete", "q": "하이", "l": 5}
	{"id": "req_003", "action": "health"}

A lookup answers with the best match, one entry per server in directory
order and the alternatives list:

	{"id": "req_001", "item": {"id": 4554, "name": "하이포션", "icon": 20602},
	 "servers": [{"id": 2075, "name": "카벙클", "state": "listed", "hq": 1500, "nq": 900}, ...],
	 "found": true, "alt": ["엑스포션"], "t": 212}

Completion returns catalog items whose name starts with the query:

	{"id": "req_002", "s": [{"id": 4554, "name": "하이포션", "icon": 20602}], "c": 1, "t": 0}

Failures come back as an error map with an HTTP-like code:

	{"id": "req_001", "e": "request timed out", "c": 504}

Requests are handled concurrently, so responses may arrive out of order;
clients match them by ID. A lookup that times out still completes its
price fetches in the background and later lookups hit the cache.

On start the server writes {"status": "ready"}. It exits cleanly when
stdin is closed.
*/
package server

// Actions
const (
	ActionLookup   = "lookup"
	ActionComplete = "complete"
	ActionHealth   = "health"
)

// Request is any client message
type Request struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"action"`
	Query  string `msgpack:"q,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`
}

// ItemInfo - minimal catalog item
type ItemInfo struct {
	ID   int    `msgpack:"id"`
	Name string `msgpack:"name"`
	Icon int    `msgpack:"icon"`
}

// ServerPrice - price outcome for one server
type ServerPrice struct {
	ID    int    `msgpack:"id"`
	Name  string `msgpack:"name"`
	State string `msgpack:"state"`
	HQ    int64  `msgpack:"hq,omitempty"`
	NQ    int64  `msgpack:"nq,omitempty"`
}

// LookupResponse - lookup result
type LookupResponse struct {
	ID           string        `msgpack:"id"`
	Item         *ItemInfo     `msgpack:"item,omitempty"`
	Servers      []ServerPrice `msgpack:"servers"`
	Found        bool          `msgpack:"found"`
	NoData       bool          `msgpack:"no_data,omitempty"`
	Alternatives []string      `msgpack:"alt,omitempty"`
	TimeTaken    int64         `msgpack:"t"`
}

// CompleteResponse - completion result
type CompleteResponse struct {
	ID          string     `msgpack:"id"`
	Suggestions []ItemInfo `msgpack:"s"`
	Count       int        `msgpack:"c"`
	TimeTaken   int64      `msgpack:"t"`
}

// StatusResponse - ready and health messages
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information for a failed request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

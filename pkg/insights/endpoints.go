package insights

const (
	endpointStreamPrepare = "/insights/stream-prepare" // POST
	endpointStream        = "/insights/stream/%s"      // GET, newline-delimited JSON
	endpointGenerate      = "/insights/generate"       // POST
	endpointSession       = "/insights/session"        // DELETE
	endpointSessionStatus = "/auth/session-status"     // GET
	endpointClientStatus  = "/clients/status/%s"       // GET
	endpointUserClient    = "/clients/user-client"     // GET
)

// HeaderSessionID carries the conversation session id on every call made
// while a session is adopted.
const HeaderSessionID = "X-Session-ID"

// UsingRealDataSentinel is the chunk value the backend sends when it starts
// using the user's connected account data. It carries no text.
const UsingRealDataSentinel = "__USING_REAL_DATA__"

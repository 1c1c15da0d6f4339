package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `seedsort classifies images from seed sorters in per-session batches.

Workflow:
1) start_session(seed_lot) returns a session_id.
2) submit_item(session_id, item_id) for each image. Items are batched once they have waited the latency threshold, up to the batch size cap.
3) get_session_stats(session_id) shows accepted, rejected, sampled and pending counts while the session runs.
4) stop_session(session_id) ends intake. Anything still queued is flushed, then the session is written to the ledger.
5) list_sessions shows finished sessions; get_session_stats still works for them.

Errors come back as tool errors with a code: SESSION_NOT_FOUND, UNKNOWN_SESSION or INVALID_INPUT.

Docs:
- seedsort://docs/index
- seedsort://docs/batching
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "seedsort://docs/index",
		Name:        "docs_index",
		Title:       "seedsort docs index",
		Description: "What the server does and which tools to call.",
		Content: `# seedsort

Each sorter opens a session for one seed lot and streams image ids into it.
The server labels each image accepted or rejected and keeps a random sample
of the results.

## Tools

- start_session: open a session for a seed lot
- submit_item: queue an image on an active session
- stop_session: stop intake and flush the queue
- get_session_stats: live or historical counters
- get_sampled_items: ids of sampled images
- list_sessions: finished sessions

See seedsort://docs/batching for timing.
`,
	},
	{
		URI:         "seedsort://docs/batching",
		Name:        "docs_batching",
		Title:       "Batch formation",
		Description: "When queued images are classified.",
		Content: `# Batch formation

Every session has its own queue and scheduler.

- The scheduler polls the queue every 100ms by default.
- An image becomes eligible once it has waited at least the latency
  threshold (300ms by default).
- A batch holds at most 8 images by default. Older images go first.
- Stopping a session flushes every queued image regardless of age.

Counters only change when a batch completes, so stats read right after
submit_item may still show zero processed images.

Sampling draws one trial per classified image. At 10% roughly one image in
ten is written to the sample sink.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}

package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/convoke-ai/convoke/pkg/api"
)

// DoneFrame is the terminal sentinel, distinct from every data frame.
const DoneFrame = "data: [DONE]\n\n"

// Normalizer converts orchestrated stream results into the canonical SSE
// wire format: one data frame per delta, then exactly one terminal frame.
// A failed stream ends with an in-band error frame instead of the sentinel;
// never both, never neither.
type Normalizer struct {
	id string
}

// NewNormalizer derives the stream's correlation id from the provider
// identifier and a millisecond timestamp. Unique enough within one stream,
// not globally.
func NewNormalizer(providerID string) *Normalizer {
	return &Normalizer{id: fmt.Sprintf("%s-%d", providerID, time.Now().UnixMilli())}
}

// errorFrame carries a terminal failure in-band; once data has started
// flowing the status code is already on the wire, so this is the only error
// channel left.
type errorFrame struct {
	ID    string         `json:"id"`
	Error errorFrameBody `json:"error"`
}

type errorFrameBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Frames drains the orchestrator channel into encoded SSE frames. The
// returned channel yields each frame in order and closes after the terminal
// frame; nothing is ever emitted after it.
func (n *Normalizer) Frames(in <-chan api.StreamResult) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for res := range in {
			if res.Err != nil {
				out <- n.encodeError(res.Err)
				return
			}
			if res.Delta != nil {
				out <- n.encodeDelta(res.Delta)
			}
		}
		out <- DoneFrame
	}()
	return out
}

func (n *Normalizer) encodeDelta(delta *api.Delta) string {
	data, _ := json.Marshal(api.StreamChunk{ID: n.id, Delta: *delta})
	return fmt.Sprintf("data: %s\n\n", data)
}

func (n *Normalizer) encodeError(err error) string {
	kind := api.KindOf(err)
	data, _ := json.Marshal(errorFrame{
		ID:    n.id,
		Error: errorFrameBody{Kind: kind.String(), Message: kind.PublicMessage()},
	})
	return fmt.Sprintf("data: %s\n\n", data)
}

package router

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
)

var adminJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// statsSnapshot is what GET /stats returns: one entry per topic with a
// live subscriber, plus every connected client's self-reported ID
// (from its RouterSubscribe control payload) keyed by the broker's
// internal connection id.
type statsSnapshot struct {
	TopicSubscribers map[string]int    `json:"topic_subscribers"`
	Clients          map[string]string `json:"clients"`
}

// AdminHandler returns a fasthttp request handler exposing the
// broker's health and subscription state -- a small side HTTP surface
// kept separate from the main transport protocol.
func (b *Broker) AdminHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/healthz":
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.SetBodyString("ok")
		case "/stats":
			snap := statsSnapshot{
				TopicSubscribers: b.sub.topicCounts(),
				Clients:          b.sub.clientIDs(),
			}
			body, err := adminJSON.Marshal(snap)
			if err != nil {
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				return
			}
			ctx.SetContentType("application/json")
			ctx.SetBody(body)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}
}

// ServeAdmin blocks serving the admin HTTP surface on addr until the
// listener errors or the process exits.
func (b *Broker) ServeAdmin(addr string) error {
	return fasthttp.ListenAndServe(addr, b.AdminHandler())
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rss_radio"

var (
	// StageRuns counts transcript and audio generations by outcome.
	StageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_runs_total",
		Help:      "Article pipeline stage invocations by stage and result.",
	}, []string{"stage", "result"})

	FeedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_fetches_total",
		Help:      "Feed fetches by result.",
	}, []string{"result"})

	ArticlesUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "articles_upserted_total",
		Help:      "Articles inserted or refreshed from feeds.",
	})

	RadioRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "radio_runs_total",
		Help:      "Finished radio runs by final state.",
	}, []string{"state"})
)

const (
	StageTranscript = "transcript"
	StageAudio      = "audio"
)

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func Handler() http.Handler {
	return promhttp.Handler()
}

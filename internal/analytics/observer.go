package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// StoreObserver mirrors document store mutations into Prometheus gauges and
// analytics events. Either dependency may be nil.
type StoreObserver struct {
	metrics   *metrics.Metrics
	collector *Collector
}

func NewStoreObserver(m *metrics.Metrics, c *Collector) *StoreObserver {
	return &StoreObserver{metrics: m, collector: c}
}

func (o *StoreObserver) DocumentsIngested(docs []index.Document) {
	o.apply(docs, EventIndexDocument, 1)
}

func (o *StoreObserver) DocumentsDeleted(docs []index.Document) {
	o.apply(docs, EventDeleteDocument, -1)
	if o.metrics != nil {
		o.metrics.DocsDeletedTotal.Add(float64(len(docs)))
	}
}

func (o *StoreObserver) apply(docs []index.Document, typ EventType, sign float64) {
	now := time.Now().UTC()
	var words int
	for _, d := range docs {
		tokens := d.WordCount()
		words += tokens
		if o.collector != nil {
			o.collector.Track(DocumentEvent{
				Type:       typ,
				DocumentID: uint64(d.ID),
				Name:       d.Name,
				TokenCount: tokens,
				SizeBytes:  len(d.Content),
				Timestamp:  now,
			})
		}
	}
	if o.metrics != nil {
		o.metrics.StoreDocuments.Add(sign * float64(len(docs)))
		o.metrics.StoreWords.Add(sign * float64(words))
	}
}

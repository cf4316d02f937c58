package traceyaml

import (
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func newSpanInfo(spanName string, cfg *trace.SpanConfig) *SpanInfo {
	return &SpanInfo{
		Name:       spanName,
		Root:       cfg.NewRoot(),
		Links:      len(cfg.Links()),
		Attributes: newAttrs(cfg.Attributes()),
		mu:         &sync.Mutex{},
	}
}

func (si *SpanInfo) newChild(spanName string, cfg *trace.SpanConfig) *SpanInfo {
	si.mu.Lock()
	defer si.mu.Unlock()

	child := newSpanInfo(spanName, cfg)
	child.isChild = true
	si.Children = append(si.Children, child)
	return child
}

func newAttrs(attrList []attribute.KeyValue) Attributes {
	if len(attrList) == 0 {
		return nil
	}
	attrMap := make(Attributes, len(attrList))
	attrsInto(attrList, attrMap)
	return attrMap
}

func attrsInto(attrList []attribute.KeyValue, attrMap Attributes) {
	for _, attr := range attrList {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}
}

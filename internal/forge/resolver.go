package forge

import (
	"context"
	"fmt"
	"os"

	"github.com/MadVikingGod/weaver/api"
)

// DocumentResolver is the file-backed api.Resolver used by the CLI: each
// source is a YAML or JSON document, parsed order-preserving. Multiple
// sources must be mappings and are merged left to right, later keys winning.
// Real schema resolution (reference expansion, validation) happens upstream;
// this resolver only loads already-resolved documents.
type DocumentResolver struct{}

func (DocumentResolver) Resolve(ctx context.Context, sources []string) (api.Value, error) {
	if len(sources) == 0 {
		return api.Null(), fmt.Errorf("no schema sources given")
	}
	var docs []api.Value
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return api.Null(), err
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return api.Null(), fmt.Errorf("read schema %s: %w", src, err)
		}
		v, err := api.ParseDocument(data)
		if err != nil {
			return api.Null(), fmt.Errorf("parse schema %s: %w", src, err)
		}
		docs = append(docs, v)
	}
	if len(docs) == 1 {
		return docs[0], nil
	}
	merged := api.NewMap()
	for i, doc := range docs {
		if doc.Kind() != api.KindMap {
			return api.Null(), fmt.Errorf("schema %s: merging requires mapping documents, got %s", sources[i], doc.Kind())
		}
		for _, k := range doc.Keys() {
			v, _ := doc.Get(k)
			merged.Set(k, v)
		}
	}
	return merged.Value(), nil
}

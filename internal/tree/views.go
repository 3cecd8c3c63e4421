package tree

import (
	"context"
	"fmt"

	"github.com/tonimelisma/viewhubs/internal/forge"
)

// views lists the model views of a derivative urn. Each view is matched to
// the geometry node of the svf output that contains it.
func (r *Resolver) views(ctx context.Context, api API, urn string) ([]Node, error) {
	manifest, err := api.Manifest(ctx, urn)
	if err != nil {
		return nil, fmt.Errorf("tree: reading manifest of %s: %w", urn, err)
	}

	views, err := api.Metadata(ctx, urn)
	if err != nil {
		return nil, fmt.Errorf("tree: reading metadata of %s: %w", urn, err)
	}

	geometry := svfDerivative(manifest)

	nodes := make([]Node, 0, len(views))
	for _, v := range views {
		if guid := matchGeometry(geometry, v.GUID); guid != "" {
			nodes = append(nodes, Node{ID: urn + "|" + guid, Text: label(v.Name), Type: TypeViews})
			continue
		}

		nodes = append(nodes, Node{ID: urn + "|" + noGeometry, Text: label(v.Name), Type: TypeUnsupported})
	}

	return nodes, nil
}

// svfDerivative returns the first viewer-ready output of the manifest, or nil.
func svfDerivative(m *forge.Manifest) *forge.ManifestDerivative {
	if m == nil {
		return nil
	}

	for i := range m.Derivatives {
		switch m.Derivatives[i].OutputType {
		case "svf", "svf2":
			return &m.Derivatives[i]
		}
	}

	return nil
}

// matchGeometry returns the guid of the geometry child of d that contains a
// node with viewGUID, or "".
func matchGeometry(d *forge.ManifestDerivative, viewGUID string) string {
	if d == nil {
		return ""
	}

	for _, child := range d.Children {
		if child.Type != "geometry" {
			continue
		}

		for _, gc := range child.Children {
			if gc.GUID == viewGUID {
				return child.GUID
			}
		}
	}

	return ""
}

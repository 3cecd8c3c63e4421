package forge

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

type manifestResponse struct {
	URN         string                       `json:"urn"`
	Status      string                       `json:"status"`
	Progress    string                       `json:"progress"`
	Derivatives []manifestDerivativeResponse `json:"derivatives"`
}

type manifestDerivativeResponse struct {
	OutputType string                 `json:"outputType"`
	Status     string                 `json:"status"`
	Name       string                 `json:"name"`
	Children   []manifestNodeResponse `json:"children"`
}

type manifestNodeResponse struct {
	GUID     string                 `json:"guid"`
	Type     string                 `json:"type"`
	Role     string                 `json:"role"`
	Name     string                 `json:"name"`
	Children []manifestNodeResponse `json:"children"`
}

type metadataResponse struct {
	Data struct {
		Type     string                 `json:"type"`
		Metadata []metadataViewResponse `json:"metadata"`
	} `json:"data"`
}

type metadataViewResponse struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func (n *manifestNodeResponse) toNode() ManifestNode {
	node := ManifestNode{
		GUID: n.GUID,
		Type: n.Type,
		Role: n.Role,
		Name: n.Name,
	}

	if len(n.Children) > 0 {
		node.Children = make([]ManifestNode, 0, len(n.Children))
		for i := range n.Children {
			node.Children = append(node.Children, n.Children[i].toNode())
		}
	}

	return node
}

// Manifest reads the derivative manifest of a base64 model urn.
func (c *Client) Manifest(ctx context.Context, urn string) (*Manifest, error) {
	c.logger.Debug("getting manifest", slog.String("urn", urn))

	var mr manifestResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/modelderivative/v2/designdata/%s/manifest", url.PathEscape(urn)), &mr); err != nil {
		return nil, err
	}

	m := &Manifest{
		URN:         mr.URN,
		Status:      mr.Status,
		Progress:    mr.Progress,
		Derivatives: make([]ManifestDerivative, 0, len(mr.Derivatives)),
	}

	for _, d := range mr.Derivatives {
		derivative := ManifestDerivative{
			OutputType: d.OutputType,
			Status:     d.Status,
			Name:       d.Name,
			Children:   make([]ManifestNode, 0, len(d.Children)),
		}

		for i := range d.Children {
			derivative.Children = append(derivative.Children, d.Children[i].toNode())
		}

		m.Derivatives = append(m.Derivatives, derivative)
	}

	return m, nil
}

// Metadata lists the model views of a base64 model urn.
func (c *Client) Metadata(ctx context.Context, urn string) ([]MetadataView, error) {
	c.logger.Debug("getting metadata", slog.String("urn", urn))

	var mr metadataResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/modelderivative/v2/designdata/%s/metadata", url.PathEscape(urn)), &mr); err != nil {
		return nil, err
	}

	views := make([]MetadataView, 0, len(mr.Data.Metadata))
	for _, v := range mr.Data.Metadata {
		views = append(views, MetadataView(v))
	}

	return views, nil
}

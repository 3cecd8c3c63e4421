package forge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// maxPages bounds pagination so a misbehaving next link cannot loop forever.
const maxPages = 1000

// collectionResponse is the JSON:API envelope shared by every data
// management listing.
type collectionResponse struct {
	Data     []resourceResponse `json:"data"`
	Included []resourceResponse `json:"included"`
	Links    linksResponse      `json:"links"`
}

// singleResponse is the JSON:API envelope of a single-resource read.
type singleResponse struct {
	Data     resourceResponse   `json:"data"`
	Included []resourceResponse `json:"included"`
}

type resourceResponse struct {
	Type          string                 `json:"type"`
	ID            string                 `json:"id"`
	Attributes    attributesResponse     `json:"attributes"`
	Links         linksResponse          `json:"links"`
	Relationships *relationshipsResponse `json:"relationships"`
	Meta          *refMetaResponse       `json:"meta"`
}

type attributesResponse struct {
	Name                 string             `json:"name"`
	DisplayName          string             `json:"displayName"`
	VersionNumber        int                `json:"versionNumber"`
	LastModifiedTime     string             `json:"lastModifiedTime"`
	LastModifiedUserName string             `json:"lastModifiedUserName"`
	Extension            *extensionResponse `json:"extension"`
}

type extensionResponse struct {
	Type    string                 `json:"type"`
	Version string                 `json:"version"`
	Data    *extensionDataResponse `json:"data"`
}

type extensionDataResponse struct {
	ViewableGUID string `json:"viewableGuid"`
}

type linksResponse struct {
	Self *hrefResponse `json:"self"`
	Next *hrefResponse `json:"next"`
}

type hrefResponse struct {
	Href string `json:"href"`
}

type relationshipsResponse struct {
	Derivatives *relationshipResponse `json:"derivatives"`
}

type relationshipResponse struct {
	Data *relationshipDataResponse `json:"data"`
}

type relationshipDataResponse struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type refMetaResponse struct {
	RefType   string             `json:"refType"`
	Direction string             `json:"direction"`
	FromType  string             `json:"fromType"`
	ToType    string             `json:"toType"`
	Extension *extensionResponse `json:"extension"`
}

func (r *resourceResponse) selfHref() string {
	if r.Links.Self == nil {
		return ""
	}

	return r.Links.Self.Href
}

func (r *resourceResponse) extensionType() string {
	if r.Attributes.Extension == nil {
		return ""
	}

	return r.Attributes.Extension.Type
}

func (r *resourceResponse) toHub() Hub {
	return Hub{
		ID:            r.ID,
		Name:          r.Attributes.Name,
		ExtensionType: r.extensionType(),
		SelfHref:      r.selfHref(),
	}
}

func (r *resourceResponse) toProject() Project {
	return Project{
		ID:            r.ID,
		Name:          r.Attributes.Name,
		ExtensionType: r.extensionType(),
		SelfHref:      r.selfHref(),
	}
}

func (r *resourceResponse) toFolderEntry() FolderEntry {
	return FolderEntry{
		ID:            r.ID,
		Type:          r.Type,
		Name:          r.Attributes.Name,
		DisplayName:   r.Attributes.DisplayName,
		ExtensionType: r.extensionType(),
		SelfHref:      r.selfHref(),
	}
}

func (r *resourceResponse) toVersion(logger *slog.Logger) Version {
	v := Version{
		ID:                   r.ID,
		Name:                 r.Attributes.Name,
		DisplayName:          r.Attributes.DisplayName,
		VersionNumber:        r.Attributes.VersionNumber,
		LastModifiedTime:     parseTimestamp(logger, r.Attributes.LastModifiedTime, r.ID),
		LastModifiedUserName: r.Attributes.LastModifiedUserName,
		ExtensionType:        r.extensionType(),
	}

	if ext := r.Attributes.Extension; ext != nil && ext.Data != nil {
		v.ViewableGUID = ext.Data.ViewableGUID
	}

	if rel := r.Relationships; rel != nil && rel.Derivatives != nil && rel.Derivatives.Data != nil {
		v.DerivativeURN = rel.Derivatives.Data.ID
	}

	return v
}

func (r *resourceResponse) toVersionRef() VersionRef {
	ref := VersionRef{
		ID:   r.ID,
		Type: r.Type,
	}

	if m := r.Meta; m != nil {
		ref.RefType = m.RefType
		ref.Direction = m.Direction
		ref.FromType = m.FromType
		ref.ToType = m.ToType

		if m.Extension != nil {
			ref.ExtensionType = m.Extension.Type
		}
	}

	return ref
}

// parseTimestamp parses an RFC 3339 timestamp. Missing or invalid values
// yield the zero time; the caller decides how to render it.
func parseTimestamp(logger *slog.Logger, raw, id string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp, leaving unset",
			slog.String("id", id),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	return t.UTC()
}

// fetchAll reads every page of a JSON:API collection, following
// links.next.href until it is absent.
func (c *Client) fetchAll(ctx context.Context, path, startMsg, doneMsg string, attrs []slog.Attr) ([]resourceResponse, error) {
	args := attrsToArgs(attrs)
	c.logger.Info(startMsg, args...)

	var all []resourceResponse

	for page := 1; path != ""; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("forge: %s exceeded %d pages", startMsg, maxPages)
		}

		var cr collectionResponse
		if err := c.getJSON(ctx, path, &cr); err != nil {
			return nil, err
		}

		all = append(all, cr.Data...)

		c.logger.Debug("fetched page",
			slog.Int("page", page),
			slog.Int("count", len(cr.Data)),
		)

		path = ""
		if cr.Links.Next != nil && cr.Links.Next.Href != "" {
			next, err := c.stripBaseURL(cr.Links.Next.Href)
			if err != nil {
				return nil, err
			}

			path = next
		}
	}

	args = append(args, slog.Int("total", len(all)))
	c.logger.Info(doneMsg, args...)

	return all, nil
}

// stripBaseURL removes the client's base URL prefix from a full URL,
// returning the path + query string for use with Do().
// Returns an error if the URL doesn't start with the expected base.
func (c *Client) stripBaseURL(fullURL string) (string, error) {
	if !strings.HasPrefix(fullURL, c.baseURL) {
		return "", fmt.Errorf("forge: next link %q does not match base URL %q", fullURL, c.baseURL)
	}

	return fullURL[len(c.baseURL):], nil
}

func attrsToArgs(attrs []slog.Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}

	return args
}

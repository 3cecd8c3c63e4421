package forge

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Hubs lists every hub visible to the token.
func (c *Client) Hubs(ctx context.Context) ([]Hub, error) {
	raw, err := c.fetchAll(ctx, "/project/v1/hubs", "listing hubs", "listed hubs complete", nil)
	if err != nil {
		return nil, err
	}

	hubs := make([]Hub, 0, len(raw))
	for i := range raw {
		hubs = append(hubs, raw[i].toHub())
	}

	return hubs, nil
}

// Projects lists the projects of a hub.
func (c *Client) Projects(ctx context.Context, hubID string) ([]Project, error) {
	raw, err := c.fetchAll(ctx,
		fmt.Sprintf("/project/v1/hubs/%s/projects", url.PathEscape(hubID)),
		"listing projects", "listed projects complete",
		[]slog.Attr{slog.String("hub_id", hubID)},
	)
	if err != nil {
		return nil, err
	}

	projects := make([]Project, 0, len(raw))
	for i := range raw {
		projects = append(projects, raw[i].toProject())
	}

	return projects, nil
}

// TopFolders lists the folders the user can see at the top of a project.
func (c *Client) TopFolders(ctx context.Context, hubID, projectID string) ([]FolderEntry, error) {
	raw, err := c.fetchAll(ctx,
		fmt.Sprintf("/project/v1/hubs/%s/projects/%s/topFolders", url.PathEscape(hubID), url.PathEscape(projectID)),
		"listing top folders", "listed top folders complete",
		[]slog.Attr{slog.String("hub_id", hubID), slog.String("project_id", projectID)},
	)
	if err != nil {
		return nil, err
	}

	return toFolderEntries(raw), nil
}

// FolderContents lists the folders and items directly inside a folder.
func (c *Client) FolderContents(ctx context.Context, projectID, folderID string) ([]FolderEntry, error) {
	raw, err := c.fetchAll(ctx,
		fmt.Sprintf("/data/v1/projects/%s/folders/%s/contents", url.PathEscape(projectID), url.PathEscape(folderID)),
		"listing folder contents", "listed folder contents complete",
		[]slog.Attr{slog.String("project_id", projectID), slog.String("folder_id", folderID)},
	)
	if err != nil {
		return nil, err
	}

	return toFolderEntries(raw), nil
}

// Item reads a single item together with its included version records.
func (c *Client) Item(ctx context.Context, projectID, itemID string) (*ItemDetail, error) {
	c.logger.Debug("getting item",
		slog.String("project_id", projectID),
		slog.String("item_id", itemID),
	)

	var sr singleResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/data/v1/projects/%s/items/%s", url.PathEscape(projectID), url.PathEscape(itemID)), &sr); err != nil {
		return nil, err
	}

	item := &ItemDetail{
		ID:            sr.Data.ID,
		Name:          sr.Data.Attributes.Name,
		DisplayName:   sr.Data.Attributes.DisplayName,
		ExtensionType: sr.Data.extensionType(),
		SelfHref:      sr.Data.selfHref(),
		Included:      make([]Version, 0, len(sr.Included)),
	}

	for i := range sr.Included {
		item.Included = append(item.Included, sr.Included[i].toVersion(c.logger))
	}

	return item, nil
}

// ItemVersions lists every version of an item, newest first as returned upstream.
func (c *Client) ItemVersions(ctx context.Context, projectID, itemID string) ([]Version, error) {
	raw, err := c.fetchAll(ctx,
		fmt.Sprintf("/data/v1/projects/%s/items/%s/versions", url.PathEscape(projectID), url.PathEscape(itemID)),
		"listing item versions", "listed item versions complete",
		[]slog.Attr{slog.String("project_id", projectID), slog.String("item_id", itemID)},
	)
	if err != nil {
		return nil, err
	}

	versions := make([]Version, 0, len(raw))
	for i := range raw {
		versions = append(versions, raw[i].toVersion(c.logger))
	}

	return versions, nil
}

// VersionRefs lists the relationship references of a version.
func (c *Client) VersionRefs(ctx context.Context, projectID, versionID string) ([]VersionRef, error) {
	raw, err := c.fetchAll(ctx,
		fmt.Sprintf("/data/v1/projects/%s/versions/%s/relationships/refs", url.PathEscape(projectID), url.PathEscape(versionID)),
		"listing version refs", "listed version refs complete",
		[]slog.Attr{slog.String("project_id", projectID), slog.String("version_id", versionID)},
	)
	if err != nil {
		return nil, err
	}

	refs := make([]VersionRef, 0, len(raw))
	for i := range raw {
		refs = append(refs, raw[i].toVersionRef())
	}

	return refs, nil
}

func toFolderEntries(raw []resourceResponse) []FolderEntry {
	entries := make([]FolderEntry, 0, len(raw))
	for i := range raw {
		entries = append(entries, raw[i].toFolderEntry())
	}

	return entries
}

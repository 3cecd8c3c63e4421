package tree

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/viewhubs/internal/forge"
)

// Defaults for Options.
const (
	DefaultFanout      = 8
	DefaultMaxRefDepth = 16
)

// Upstream extension types the mapping rules key on.
const (
	hubTypeCore     = "hubs:autodesk.core:Hub"
	hubTypePersonal = "hubs:autodesk.a360:PersonalHub"
	hubTypeBIM360   = "hubs:autodesk.bim360:Account"

	projectTypeCore   = "projects:autodesk.core:Project"
	projectTypeBIM360 = "projects:autodesk.bim360:Project"

	itemTypeBIM360Document = "items:autodesk.bim360:Document"
)

// API is the slice of the remote client the resolver needs. *forge.Client
// satisfies it.
type API interface {
	Hubs(ctx context.Context) ([]forge.Hub, error)
	Projects(ctx context.Context, hubID string) ([]forge.Project, error)
	TopFolders(ctx context.Context, hubID, projectID string) ([]forge.FolderEntry, error)
	FolderContents(ctx context.Context, projectID, folderID string) ([]forge.FolderEntry, error)
	Item(ctx context.Context, projectID, itemID string) (*forge.ItemDetail, error)
	ItemVersions(ctx context.Context, projectID, itemID string) ([]forge.Version, error)
	VersionRefs(ctx context.Context, projectID, versionID string) ([]forge.VersionRef, error)
	Manifest(ctx context.Context, urn string) (*forge.Manifest, error)
	Metadata(ctx context.Context, urn string) ([]forge.MetadataView, error)
}

// Options tunes a Resolver.
type Options struct {
	// Fanout bounds concurrent upstream calls for sibling nodes.
	Fanout int
	// MaxRefDepth bounds the version reference chain walk.
	MaxRefDepth int
	// Location renders version dates. Defaults to time.Local.
	Location *time.Location
	Logger   *slog.Logger
}

// Resolver turns an id into the node's children. It holds no per-request
// state and is safe for concurrent use.
type Resolver struct {
	fanout      int
	maxRefDepth int
	loc         *time.Location
	logger      *slog.Logger
}

// NewResolver returns a Resolver with defaults applied to opts.
func NewResolver(opts Options) *Resolver {
	if opts.Fanout <= 0 {
		opts.Fanout = DefaultFanout
	}

	if opts.MaxRefDepth <= 0 {
		opts.MaxRefDepth = DefaultMaxRefDepth
	}

	if opts.Location == nil {
		opts.Location = time.Local
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Resolver{
		fanout:      opts.Fanout,
		maxRefDepth: opts.MaxRefDepth,
		loc:         opts.Location,
		logger:      opts.Logger,
	}
}

// Children resolves the children of id using api. A malformed id fails with
// ErrMalformedID before api is called.
func (r *Resolver) Children(ctx context.Context, api API, id string) ([]Node, error) {
	req, err := Classify(id)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("resolving children", slog.String("kind", req.Kind.String()))

	var nodes []Node

	switch req.Kind {
	case KindRoot:
		nodes, err = r.hubs(ctx, api)
	case KindHub:
		nodes, err = r.projects(ctx, api, req.HubID)
	case KindProject:
		nodes, err = r.topFolders(ctx, api, req.HubID, req.ProjectID)
	case KindFolder:
		nodes, err = r.folderContents(ctx, api, req.ProjectID, req.FolderID)
	case KindItem:
		nodes, err = r.versions(ctx, api, req.ProjectID, req.ItemID)
	case KindViews:
		nodes, err = r.views(ctx, api, req.URN)
	}

	if err != nil {
		return nil, err
	}

	r.logger.Debug("resolved children",
		slog.String("kind", req.Kind.String()),
		slog.Int("count", len(nodes)),
	)

	return nodes, nil
}

func (r *Resolver) hubs(ctx context.Context, api API) ([]Node, error) {
	hubs, err := api.Hubs(ctx)
	if err != nil {
		return nil, fmt.Errorf("tree: listing hubs: %w", err)
	}

	nodes := make([]Node, 0, len(hubs))
	for _, h := range hubs {
		nodes = append(nodes, Node{ID: h.SelfHref, Text: label(h.Name), Type: hubType(h.ExtensionType), Children: true})
	}

	return nodes, nil
}

func hubType(ext string) string {
	switch ext {
	case hubTypePersonal:
		return TypePersonalHub
	case hubTypeBIM360:
		return TypeBIM360Hubs
	default: // hubTypeCore and anything newer
		return TypeHubs
	}
}

func (r *Resolver) projects(ctx context.Context, api API, hubID string) ([]Node, error) {
	projects, err := api.Projects(ctx, hubID)
	if err != nil {
		return nil, fmt.Errorf("tree: listing projects of hub %s: %w", hubID, err)
	}

	nodes := make([]Node, 0, len(projects))
	for _, p := range projects {
		nodes = append(nodes, Node{ID: p.SelfHref, Text: label(p.Name), Type: projectType(p.ExtensionType), Children: true})
	}

	return nodes, nil
}

func projectType(ext string) string {
	switch ext {
	case projectTypeCore:
		return TypeA360Projects
	case projectTypeBIM360:
		return TypeBIM360Projects
	default:
		return TypeProjects
	}
}

func (r *Resolver) topFolders(ctx context.Context, api API, hubID, projectID string) ([]Node, error) {
	folders, err := api.TopFolders(ctx, hubID, projectID)
	if err != nil {
		return nil, fmt.Errorf("tree: listing top folders of project %s: %w", projectID, err)
	}

	nodes := make([]Node, 0, len(folders))
	for _, f := range folders {
		nodes = append(nodes, Node{
			ID:       f.SelfHref,
			Text:     label(firstNonEmpty(f.DisplayName, f.Name)),
			Type:     entryType(f.Type),
			Children: true,
		})
	}

	return nodes, nil
}

func (r *Resolver) folderContents(ctx context.Context, api API, projectID, folderID string) ([]Node, error) {
	entries, err := api.FolderContents(ctx, projectID, folderID)
	if err != nil {
		return nil, fmt.Errorf("tree: listing contents of folder %s: %w", folderID, err)
	}

	return fanOut(ctx, r.fanout, entries, func(ctx context.Context, e forge.FolderEntry) (Node, bool, error) {
		name := firstNonEmpty(e.Name, e.DisplayName)

		if e.ExtensionType == itemTypeBIM360Document {
			detail, err := api.Item(ctx, projectID, e.ID)
			if err != nil {
				return Node{}, false, fmt.Errorf("tree: reading document item %s: %w", e.ID, err)
			}

			if len(detail.Included) > 0 && detail.Included[0].DisplayName != "" {
				name = detail.Included[0].DisplayName
			}
		}

		// Entries with no name carry no storage; nothing to show.
		if name == "" {
			return Node{}, false, nil
		}

		return Node{ID: e.SelfHref, Text: label(name), Type: entryType(e.Type), Children: true}, true, nil
	})
}

// entryType maps a JSON:API resource type onto the node type set.
func entryType(t string) string {
	switch t {
	case TypeFolders, TypeItems:
		return t
	default:
		return TypeUnsupported
	}
}

// fanOut maps items concurrently with at most limit calls in flight. Output
// order follows input order; entries for which fn reports false are dropped.
// The first error cancels the rest.
func fanOut[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) (Node, bool, error)) ([]Node, error) {
	type slot struct {
		node Node
		keep bool
	}

	slots := make([]slot, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			node, keep, err := fn(gctx, item)
			if err != nil {
				return err
			}

			slots[i] = slot{node: node, keep: keep}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, len(items))
	for _, s := range slots {
		if s.keep {
			nodes = append(nodes, s.node)
		}
	}

	return nodes, nil
}

// label normalizes a resource name to NFC. Names are otherwise emitted as
// given.
func label(s string) string {
	return norm.NFC.String(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

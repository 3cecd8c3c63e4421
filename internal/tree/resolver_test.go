package tree

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/viewhubs/internal/forge"
)

// fakeAPI is an in-memory API that records every call.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	hubs       []forge.Hub
	projects   map[string][]forge.Project
	topFolders map[string][]forge.FolderEntry
	contents   map[string][]forge.FolderEntry
	items      map[string]*forge.ItemDetail
	versions   map[string][]forge.Version
	refs       map[string][]forge.VersionRef
	manifests  map[string]*forge.Manifest
	metadata   map[string][]forge.MetadataView
	err        error
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
}

func (f *fakeAPI) callsWithPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int

	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}

	return n
}

func (f *fakeAPI) Hubs(context.Context) ([]forge.Hub, error) {
	f.record("hubs")
	return f.hubs, f.err
}

func (f *fakeAPI) Projects(_ context.Context, hubID string) ([]forge.Project, error) {
	f.record("projects:" + hubID)
	return f.projects[hubID], f.err
}

func (f *fakeAPI) TopFolders(_ context.Context, hubID, projectID string) ([]forge.FolderEntry, error) {
	f.record("topFolders:" + hubID + "/" + projectID)
	return f.topFolders[projectID], f.err
}

func (f *fakeAPI) FolderContents(_ context.Context, projectID, folderID string) ([]forge.FolderEntry, error) {
	f.record("contents:" + projectID + "/" + folderID)
	return f.contents[folderID], f.err
}

func (f *fakeAPI) Item(_ context.Context, projectID, itemID string) (*forge.ItemDetail, error) {
	f.record("item:" + projectID + "/" + itemID)

	if d, ok := f.items[itemID]; ok {
		return d, nil
	}

	return nil, errors.New("item not found")
}

func (f *fakeAPI) ItemVersions(_ context.Context, projectID, itemID string) ([]forge.Version, error) {
	f.record("versions:" + projectID + "/" + itemID)
	return f.versions[itemID], f.err
}

func (f *fakeAPI) VersionRefs(_ context.Context, projectID, versionID string) ([]forge.VersionRef, error) {
	f.record("refs:" + projectID + "/" + versionID)
	return f.refs[versionID], nil
}

func (f *fakeAPI) Manifest(_ context.Context, urn string) (*forge.Manifest, error) {
	f.record("manifest:" + urn)
	return f.manifests[urn], f.err
}

func (f *fakeAPI) Metadata(_ context.Context, urn string) ([]forge.MetadataView, error) {
	f.record("metadata:" + urn)
	return f.metadata[urn], f.err
}

func newTestResolver() *Resolver {
	return NewResolver(Options{Location: time.UTC})
}

func TestChildren_RootListsHubsOnly(t *testing.T) {
	api := &fakeAPI{hubs: []forge.Hub{
		{ID: "h1", Name: "Acme", ExtensionType: hubTypeCore, SelfHref: apiRoot + "/project/v1/hubs/h1"},
	}}

	nodes, err := newTestResolver().Children(context.Background(), api, RootID)
	require.NoError(t, err)
	assert.Equal(t, []Node{{ID: apiRoot + "/project/v1/hubs/h1", Text: "Acme", Type: TypeHubs, Children: true}}, nodes)
	assert.Equal(t, []string{"hubs"}, api.calls)
}

func TestChildren_HubTypes(t *testing.T) {
	api := &fakeAPI{hubs: []forge.Hub{
		{Name: "a", ExtensionType: hubTypeCore},
		{Name: "b", ExtensionType: hubTypePersonal},
		{Name: "c", ExtensionType: hubTypeBIM360},
		{Name: "d", ExtensionType: "hubs:autodesk.future:Thing"},
	}}

	nodes, err := newTestResolver().Children(context.Background(), api, RootID)
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	assert.Equal(t, TypeHubs, nodes[0].Type)
	assert.Equal(t, TypePersonalHub, nodes[1].Type)
	assert.Equal(t, TypeBIM360Hubs, nodes[2].Type)
	assert.Equal(t, TypeHubs, nodes[3].Type)
}

func TestChildren_HubListsProjectsOnly(t *testing.T) {
	api := &fakeAPI{projects: map[string][]forge.Project{"H1": {
		{Name: "A", ExtensionType: projectTypeCore, SelfHref: "p/a"},
		{Name: "B", ExtensionType: projectTypeBIM360, SelfHref: "p/b"},
		{Name: "C", SelfHref: "p/c"},
	}}}

	nodes, err := newTestResolver().Children(context.Background(), api, apiRoot+"/project/v1/hubs/H1")
	require.NoError(t, err)
	assert.Equal(t, []string{"projects:H1"}, api.calls)
	assert.Equal(t, []Node{
		{ID: "p/a", Text: "A", Type: TypeA360Projects, Children: true},
		{ID: "p/b", Text: "B", Type: TypeBIM360Projects, Children: true},
		{ID: "p/c", Text: "C", Type: TypeProjects, Children: true},
	}, nodes)
}

func TestChildren_TopFoldersPreferDisplayName(t *testing.T) {
	api := &fakeAPI{topFolders: map[string][]forge.FolderEntry{"P1": {
		{Type: "folders", Name: "raw-name", DisplayName: "Project Files", SelfHref: "f/1"},
		{Type: "folders", Name: "Plans", SelfHref: "f/2"},
	}}}

	nodes, err := newTestResolver().Children(context.Background(), api, apiRoot+"/project/v1/hubs/H1/projects/P1")
	require.NoError(t, err)
	assert.Equal(t, []string{"topFolders:H1/P1"}, api.calls)
	assert.Equal(t, []Node{
		{ID: "f/1", Text: "Project Files", Type: TypeFolders, Children: true},
		{ID: "f/2", Text: "Plans", Type: TypeFolders, Children: true},
	}, nodes)
}

func TestChildren_FolderContentsNames(t *testing.T) {
	api := &fakeAPI{contents: map[string][]forge.FolderEntry{"F1": {
		{ID: "i1", Type: "items", Name: "model.rvt", DisplayName: "ignored", SelfHref: "i/1"},
		{ID: "i2", Type: "items", DisplayName: "only-display", SelfHref: "i/2"},
		{ID: "i3", Type: "items", SelfHref: "i/3"},
		{ID: "f2", Type: "folders", Name: "Sub%20Folder", SelfHref: "f/2"},
	}}}

	nodes, err := newTestResolver().Children(context.Background(), api, apiRoot+"/data/v1/projects/P1/folders/F1")
	require.NoError(t, err)
	assert.Equal(t, []Node{
		{ID: "i/1", Text: "model.rvt", Type: TypeItems, Children: true},
		{ID: "i/2", Text: "only-display", Type: TypeItems, Children: true},
		{ID: "f/2", Text: "Sub%20Folder", Type: TypeFolders, Children: true},
	}, nodes)
	assert.Zero(t, api.callsWithPrefix("item:"))
}

func TestChildren_FolderContentsResolvesDocumentNames(t *testing.T) {
	api := &fakeAPI{
		contents: map[string][]forge.FolderEntry{"F1": {
			{ID: "d1", Type: "items", ExtensionType: itemTypeBIM360Document, SelfHref: "i/d1"},
			{ID: "d2", Type: "items", ExtensionType: itemTypeBIM360Document, SelfHref: "i/d2"},
		}},
		items: map[string]*forge.ItemDetail{
			"d1": {Included: []forge.Version{{DisplayName: "A-101 Sheet"}}},
			"d2": {},
		},
	}

	nodes, err := newTestResolver().Children(context.Background(), api, apiRoot+"/data/v1/projects/P1/folders/F1")
	require.NoError(t, err)
	assert.Equal(t, []Node{{ID: "i/d1", Text: "A-101 Sheet", Type: TypeItems, Children: true}}, nodes)
	assert.Equal(t, 2, api.callsWithPrefix("item:P1/"))
}

func TestChildren_FolderContentsDetailFailurePropagates(t *testing.T) {
	api := &fakeAPI{contents: map[string][]forge.FolderEntry{"F1": {
		{ID: "missing", Type: "items", ExtensionType: itemTypeBIM360Document},
	}}}

	_, err := newTestResolver().Children(context.Background(), api, apiRoot+"/data/v1/projects/P1/folders/F1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading document item missing")
}

func TestChildren_Versions(t *testing.T) {
	modified := time.Date(2021, 3, 4, 15, 6, 7, 0, time.UTC)

	api := &fakeAPI{versions: map[string][]forge.Version{"I1": {
		{ID: "urn123?version=7", LastModifiedTime: modified, LastModifiedUserName: "Ann", DerivativeURN: "dXJuMTIz"},
		{ID: "urn123?version=6", LastModifiedTime: modified, LastModifiedUserName: "Bob"},
		{ID: "urn123", VersionNumber: 5, LastModifiedUserName: "Cy", DerivativeURN: "dXJuNQ"},
	}}}

	nodes, err := newTestResolver().Children(context.Background(), api, apiRoot+"/data/v1/projects/P1/items/I1")
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	assert.Equal(t, Node{ID: "dXJuMTIz", Text: "v7: 3/4/2021, 3:06:07 PM by Ann", Type: TypeVersions, Children: true}, nodes[0])
	assert.True(t, strings.HasPrefix(nodes[0].Text, "v7: "))
	assert.True(t, strings.HasSuffix(nodes[0].Text, " by Ann"))

	assert.Equal(t, Node{ID: NotAvailable, Text: "v6: 3/4/2021, 3:06:07 PM by Bob", Type: TypeUnsupported, Children: false}, nodes[1])

	assert.Equal(t, "v5: unknown date by Cy", nodes[2].Text)
	assert.Zero(t, api.callsWithPrefix("refs:"))
}

func TestChildren_VersionsUseConfiguredZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	api := &fakeAPI{versions: map[string][]forge.Version{"I1": {
		{ID: "u?version=1", LastModifiedTime: time.Date(2021, 3, 4, 23, 0, 0, 0, time.UTC), LastModifiedUserName: "Ann"},
	}}}

	nodes, err := NewResolver(Options{Location: loc}).Children(context.Background(), api, "projects/P1/items/I1")
	require.NoError(t, err)
	assert.Equal(t, "v1: 3/5/2021, 1:00:00 AM by Ann", nodes[0].Text)
}

func TestChildren_DocumentVersionFileToDocument(t *testing.T) {
	api := &fakeAPI{
		versions: map[string][]forge.Version{"I1": {
			{ID: "view?version=2", LastModifiedUserName: "Ann", ViewableGUID: "guid-1"},
		}},
		refs: map[string][]forge.VersionRef{"view?version=2": {
			{ID: "other", FromType: "folders", ToType: "versions"},
			{ID: "seed?version=1", FromType: "versions", ToType: "versions", ExtensionType: refTypeFileToDocument},
		}},
	}

	nodes, err := newTestResolver().Children(context.Background(), api, "projects/P1/items/I1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	want := base64.RawURLEncoding.EncodeToString([]byte("seed?version=1")) + "|guid-1"
	assert.Equal(t, want, nodes[0].ID)
	assert.NotContains(t, nodes[0].ID, "=")
	assert.Equal(t, TypeBIM360Documents, nodes[0].Type)
	assert.False(t, nodes[0].Children)
	assert.Equal(t, 1, api.callsWithPrefix("refs:"))
}

func TestChildren_DocumentVersionCopyRecursesOnce(t *testing.T) {
	api := &fakeAPI{
		versions: map[string][]forge.Version{"I1": {
			{ID: "copy?version=1", ViewableGUID: "g"},
		}},
		refs: map[string][]forge.VersionRef{
			"copy?version=1": {{ID: "orig-view?version=1", FromType: "versions", ToType: "versions", ExtensionType: refTypeCopyDocument}},
			"orig-view?version=1": {{ID: "seed?version=3", FromType: "versions", ToType: "versions", ExtensionType: refTypeFileToDocument}},
		},
	}

	nodes, err := newTestResolver().Children(context.Background(), api, "projects/P1/items/I1")
	require.NoError(t, err)
	assert.Equal(t, base64.RawURLEncoding.EncodeToString([]byte("seed?version=3"))+"|g", nodes[0].ID)
	assert.Equal(t, 2, api.callsWithPrefix("refs:"))
}

func TestChildren_DocumentVersionNoSeed(t *testing.T) {
	tests := []struct {
		name string
		refs map[string][]forge.VersionRef
	}{
		{"no refs", nil},
		{"no versions ref", map[string][]forge.VersionRef{"v": {{ID: "x", FromType: "items", ToType: "versions"}}}},
		{"unknown ref type", map[string][]forge.VersionRef{"v": {{ID: "x", FromType: "versions", ToType: "versions", ExtensionType: "derived:autodesk.other:Thing"}}}},
		{"cycle", map[string][]forge.VersionRef{
			"v": {{ID: "w", FromType: "versions", ToType: "versions", ExtensionType: refTypeCopyDocument}},
			"w": {{ID: "v", FromType: "versions", ToType: "versions", ExtensionType: refTypeCopyDocument}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				versions: map[string][]forge.Version{"I1": {{ID: "v", ViewableGUID: "g"}}},
				refs:     tt.refs,
			}

			nodes, err := newTestResolver().Children(context.Background(), api, "projects/P1/items/I1")
			require.NoError(t, err)
			assert.Equal(t, Node{ID: NotAvailable, Text: nodes[0].Text, Type: TypeUnsupported, Children: false}, nodes[0])
		})
	}
}

func TestChildren_DocumentVersionDepthBound(t *testing.T) {
	refs := make(map[string][]forge.VersionRef)
	for i := range 10 {
		id := "v" + string(rune('a'+i))
		next := "v" + string(rune('a'+i+1))
		refs[id] = []forge.VersionRef{{ID: next, FromType: "versions", ToType: "versions", ExtensionType: refTypeCopyDocument}}
	}

	api := &fakeAPI{
		versions: map[string][]forge.Version{"I1": {{ID: "va", ViewableGUID: "g"}}},
		refs:     refs,
	}

	nodes, err := NewResolver(Options{MaxRefDepth: 3, Location: time.UTC}).Children(context.Background(), api, "projects/P1/items/I1")
	require.NoError(t, err)
	assert.Equal(t, TypeUnsupported, nodes[0].Type)
	assert.Equal(t, 3, api.callsWithPrefix("refs:"))
}

func TestChildren_VersionsKeepUpstreamOrderUnderFanout(t *testing.T) {
	var versions []forge.Version
	for i := range 50 {
		versions = append(versions, forge.Version{ID: "u?version=" + string(rune('0'+i%10)), DerivativeURN: "d" + string(rune('A'+i%26)) + string(rune('0'+i/26))})
	}

	api := &fakeAPI{versions: map[string][]forge.Version{"I1": versions}}

	nodes, err := NewResolver(Options{Fanout: 4, Location: time.UTC}).Children(context.Background(), api, "projects/P1/items/I1")
	require.NoError(t, err)
	require.Len(t, nodes, len(versions))

	for i := range versions {
		assert.Equal(t, versions[i].DerivativeURN, nodes[i].ID)
	}
}

func TestChildren_Views(t *testing.T) {
	api := &fakeAPI{
		manifests: map[string]*forge.Manifest{"dXJu": {Derivatives: []forge.ManifestDerivative{
			{OutputType: "thumbnail"},
			{OutputType: "svf", Children: []forge.ManifestNode{
				{GUID: "res-1", Type: "resource"},
				{GUID: "geo-3d", Type: "geometry", Children: []forge.ManifestNode{{GUID: "meta-3d"}}},
				{GUID: "geo-2d", Type: "geometry", Children: []forge.ManifestNode{{GUID: "meta-2d"}}},
			}},
		}}},
		metadata: map[string][]forge.MetadataView{"dXJu": {
			{GUID: "meta-3d", Name: "{3D}"},
			{GUID: "meta-2d", Name: "Level 1"},
			{GUID: "orphan", Name: "Lost"},
		}},
	}

	nodes, err := newTestResolver().Children(context.Background(), api, "dXJu")
	require.NoError(t, err)
	assert.Equal(t, []Node{
		{ID: "dXJu|geo-3d", Text: "{3D}", Type: TypeViews},
		{ID: "dXJu|geo-2d", Text: "Level 1", Type: TypeViews},
		{ID: "dXJu|none", Text: "Lost", Type: TypeUnsupported},
	}, nodes)
}

func TestChildren_ViewsWithoutSVF(t *testing.T) {
	api := &fakeAPI{
		manifests: map[string]*forge.Manifest{"u": {Derivatives: []forge.ManifestDerivative{{OutputType: "obj"}}}},
		metadata:  map[string][]forge.MetadataView{"u": {{GUID: "m", Name: "View"}}},
	}

	nodes, err := newTestResolver().Children(context.Background(), api, "u")
	require.NoError(t, err)
	assert.Equal(t, []Node{{ID: "u|none", Text: "View", Type: TypeUnsupported}}, nodes)
}

func TestChildren_MalformedIDMakesNoCalls(t *testing.T) {
	api := &fakeAPI{}

	for _, id := range []string{"", apiRoot + "/data/v1/projects/P1/versions/V1", "projects/"} {
		_, err := newTestResolver().Children(context.Background(), api, id)
		assert.ErrorIs(t, err, ErrMalformedID, id)
	}

	assert.Empty(t, api.calls)
}

func TestChildren_UpstreamErrorPropagates(t *testing.T) {
	api := &fakeAPI{err: &forge.APIError{StatusCode: 503, Err: forge.ErrServerError}}

	_, err := newTestResolver().Children(context.Background(), api, RootID)
	require.Error(t, err)
	assert.ErrorIs(t, err, forge.ErrServerError)
}

func TestNode_JSONShape(t *testing.T) {
	data, err := json.Marshal(Node{ID: "i", Text: "t", Type: TypeHubs, Children: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"i","text":"t","type":"hubs","children":true}`, string(data))
}

func TestLabel_NormalizesToNFC(t *testing.T) {
	assert.Equal(t, "Caf\u00e9", label("Cafe\u0301"))
	assert.Equal(t, "Budget %25 Q1", label("Budget %25 Q1"))
}

func TestVersionText_DecodesEscapes(t *testing.T) {
	assert.Equal(t, "v1: today by Ann Lee", versionText("v1: today by Ann%20Lee"))
	assert.Equal(t, "v1: 100% by Ann", versionText("v1: 100% by Ann"), "invalid escapes are kept verbatim")
}

func TestChildren_ResourceNamesKeepEscapes(t *testing.T) {
	api := &fakeAPI{
		hubs: []forge.Hub{{Name: "Budget %25 Q1", ExtensionType: hubTypeCore, SelfHref: "h1"}},
		projects: map[string][]forge.Project{"H1": {
			{Name: "Site %2F North", ExtensionType: projectTypeBIM360, SelfHref: "p1"},
		}},
	}

	nodes, err := newTestResolver().Children(context.Background(), api, RootID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Budget %25 Q1", nodes[0].Text)

	nodes, err = newTestResolver().Children(context.Background(), api, apiRoot+"/project/v1/hubs/H1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Site %2F North", nodes[0].Text)
}

func TestChildren_VersionLabelDecodesEscapes(t *testing.T) {
	api := &fakeAPI{versions: map[string][]forge.Version{"I1": {
		{ID: "u?version=3", LastModifiedUserName: "Ann%20Lee"},
	}}}

	nodes, err := newTestResolver().Children(context.Background(), api, "projects/P1/items/I1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "v3: unknown date by Ann Lee", nodes[0].Text)
}

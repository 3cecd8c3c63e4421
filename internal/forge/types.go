package forge

import "time"

// Hub is a top-level account grouping. Fields are normalized from the
// JSON:API response; callers never see raw API data.
type Hub struct {
	ID            string
	Name          string
	ExtensionType string // e.g. "hubs:autodesk.bim360:Account"
	SelfHref      string
}

// Project is a workspace within a hub.
type Project struct {
	ID            string
	Name          string
	ExtensionType string
	SelfHref      string
}

// FolderEntry is one record of a top-folder listing or a folder's contents.
// Type is the JSON:API resource type ("folders" or "items").
type FolderEntry struct {
	ID            string
	Type          string
	Name          string // empty when absent
	DisplayName   string // empty when absent
	ExtensionType string
	SelfHref      string
}

// ItemDetail is a single item with its included version records.
type ItemDetail struct {
	ID            string
	Name          string
	DisplayName   string
	ExtensionType string
	SelfHref      string
	Included      []Version
}

// Version is one version of an item.
type Version struct {
	ID                   string // "<lineage urn>?version=<N>"
	Name                 string
	DisplayName          string
	VersionNumber        int // 0 when absent
	LastModifiedTime     time.Time
	LastModifiedUserName string
	ExtensionType        string
	ViewableGUID         string // extension.data.viewableGuid; empty when absent
	DerivativeURN        string // relationships.derivatives.data.id; empty when absent
}

// VersionRef is one relationship reference of a version.
type VersionRef struct {
	ID            string
	Type          string
	RefType       string
	Direction     string
	FromType      string
	ToType        string
	ExtensionType string // e.g. "derived:autodesk.bim360:CopyDocument"
}

// Manifest is the derivative manifest of a model urn.
type Manifest struct {
	URN         string
	Status      string
	Progress    string
	Derivatives []ManifestDerivative
}

// ManifestDerivative is one output of a translation job.
type ManifestDerivative struct {
	OutputType string // "svf", "svf2", "thumbnail", ...
	Status     string
	Name       string
	Children   []ManifestNode
}

// ManifestNode is a node of a derivative's output tree.
type ManifestNode struct {
	GUID     string
	Type     string // "geometry", "view", "resource", ...
	Role     string // "3d", "2d", "graphics", ...
	Name     string
	Children []ManifestNode
}

// MetadataView is one model view listed by the metadata endpoint.
type MetadataView struct {
	GUID string
	Name string
	Role string
}

// UserProfile is the authenticated user's profile.
type UserProfile struct {
	UserID        string
	UserName      string
	FirstName     string
	LastName      string
	Email         string
	ProfileImages map[string]string // keyed "sizeX20" .. "sizeX360"
}

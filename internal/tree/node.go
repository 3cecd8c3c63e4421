// Package tree resolves the children of one node of the hub / project /
// folder / item / version / view hierarchy into the flat node shape the
// browser tree widget consumes. Nodes are built fresh for every request.
package tree

// Node types understood by the UI.
const (
	TypeHubs            = "hubs"
	TypePersonalHub     = "personalHub"
	TypeBIM360Hubs      = "bim360Hubs"
	TypeA360Projects    = "a360projects"
	TypeBIM360Projects  = "bim360projects"
	TypeProjects        = "projects"
	TypeFolders         = "folders"
	TypeItems           = "items"
	TypeVersions        = "versions"
	TypeBIM360Documents = "bim360documents"
	TypeViews           = "views"
	TypeUnsupported     = "unsupported"
)

// RootID is the id the UI sends for the invisible root node.
const RootID = "#"

// NotAvailable is the id of a version leaf that has no viewable.
const NotAvailable = "not_available"

// noGeometry replaces the geometry guid of a view with no matching geometry.
const noGeometry = "none"

// Node is one entry of the tree widget.
type Node struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Type     string `json:"type"`
	Children bool   `json:"children"`
}

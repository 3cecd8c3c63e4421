package tree

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedID is returned for ids that name no known node.
var ErrMalformedID = errors.New("tree: malformed id")

// Kind is the level of the hierarchy a request expands.
type Kind int

// Kinds, in hierarchy order.
const (
	KindRoot Kind = iota
	KindHub
	KindProject
	KindFolder
	KindItem
	KindViews
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindHub:
		return "hub"
	case KindProject:
		return "project"
	case KindFolder:
		return "folder"
	case KindItem:
		return "item"
	case KindViews:
		return "views"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Request is a classified expansion request.
type Request struct {
	Kind      Kind
	HubID     string
	ProjectID string
	FolderID  string
	ItemID    string
	URN       string // KindViews only
}

// Classify maps an id to a Request without contacting upstream.
//
// "#" is the root. An id without "/" is a derivative urn whose views are
// requested. Anything else is a self link whose second-to-last segment names
// the resource kind and whose last segment is its id; projects, folders and
// items also take their parent id from the segment before that.
func Classify(id string) (Request, error) {
	switch {
	case id == "":
		return Request{}, fmt.Errorf("%w: empty", ErrMalformedID)
	case id == RootID:
		return Request{Kind: KindRoot}, nil
	case !strings.Contains(id, "/"):
		return Request{Kind: KindViews, URN: id}, nil
	}

	segs := strings.Split(id, "/")
	n := len(segs)
	name, resourceID := segs[n-2], segs[n-1]

	if resourceID == "" {
		return Request{}, fmt.Errorf("%w: %q has no resource id", ErrMalformedID, id)
	}

	parent := func() (string, error) {
		if n < 3 || segs[n-3] == "" {
			return "", fmt.Errorf("%w: %q has no parent id", ErrMalformedID, id)
		}

		return segs[n-3], nil
	}

	switch name {
	case "hubs":
		return Request{Kind: KindHub, HubID: resourceID}, nil
	case "projects":
		hubID, err := parent()
		if err != nil {
			return Request{}, err
		}

		return Request{Kind: KindProject, HubID: hubID, ProjectID: resourceID}, nil
	case "folders":
		projectID, err := parent()
		if err != nil {
			return Request{}, err
		}

		return Request{Kind: KindFolder, ProjectID: projectID, FolderID: resourceID}, nil
	case "items":
		projectID, err := parent()
		if err != nil {
			return Request{}, err
		}

		return Request{Kind: KindItem, ProjectID: projectID, ItemID: resourceID}, nil
	default:
		return Request{}, fmt.Errorf("%w: unknown resource kind %q", ErrMalformedID, name)
	}
}

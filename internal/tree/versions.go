package tree

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tonimelisma/viewhubs/internal/forge"
)

// versionDateLayout renders version dates as month/day/year with a 12-hour clock.
const versionDateLayout = "1/2/2006, 3:04:05 PM"

// Reference extension types of the BIM 360 Plan folder document chain.
const (
	refTypeCopyDocument   = "derived:autodesk.bim360:CopyDocument"
	refTypeFileToDocument = "derived:autodesk.bim360:FileToDocument"
	refEndpointVersions   = "versions"
)

var versionOrdinalRe = regexp.MustCompile(`^(.*)\?version=(\d+)$`)

func (r *Resolver) versions(ctx context.Context, api API, projectID, itemID string) ([]Node, error) {
	versions, err := api.ItemVersions(ctx, projectID, itemID)
	if err != nil {
		return nil, fmt.Errorf("tree: listing versions of item %s: %w", itemID, err)
	}

	return fanOut(ctx, r.fanout, versions, func(ctx context.Context, v forge.Version) (Node, bool, error) {
		text := r.versionLabel(v)

		if v.ViewableGUID != "" {
			seed, err := r.seedVersion(ctx, api, projectID, v.ID)
			if err != nil {
				return Node{}, false, err
			}

			if seed == "" {
				return Node{ID: NotAvailable, Text: text, Type: TypeUnsupported, Children: false}, true, nil
			}

			return Node{
				// The viewer expects the seed urn in unpadded URL-safe base64.
				ID:       base64.RawURLEncoding.EncodeToString([]byte(seed)) + "|" + v.ViewableGUID,
				Text:     text,
				Type:     TypeBIM360Documents,
				Children: false,
			}, true, nil
		}

		if v.DerivativeURN == "" {
			return Node{ID: NotAvailable, Text: text, Type: TypeUnsupported, Children: false}, true, nil
		}

		return Node{ID: v.DerivativeURN, Text: text, Type: TypeVersions, Children: true}, true, nil
	})
}

// versionLabel renders "v<N>: <date> by <author>".
func (r *Resolver) versionLabel(v forge.Version) string {
	ordinal := strconv.Itoa(v.VersionNumber)
	if m := versionOrdinalRe.FindStringSubmatch(v.ID); m != nil {
		ordinal = m[2]
	}

	date := "unknown date"
	if !v.LastModifiedTime.IsZero() {
		date = v.LastModifiedTime.In(r.loc).Format(versionDateLayout)
	}

	return versionText("v" + ordinal + ": " + date + " by " + v.LastModifiedUserName)
}

// versionText percent-decodes a rendered version label when it holds
// escapes; undecodable input is kept verbatim.
func versionText(s string) string {
	if strings.Contains(s, "%") {
		if decoded, err := url.PathUnescape(s); err == nil {
			s = decoded
		}
	}

	return label(s)
}

// seedVersion walks the versions-to-versions reference chain of versionID to
// the authored seed version. CopyDocument links are followed; a
// FileToDocument link names the seed. Anything else, a cycle, or a chain
// longer than maxRefDepth yields "".
func (r *Resolver) seedVersion(ctx context.Context, api API, projectID, versionID string) (string, error) {
	visited := make(map[string]bool)
	current := versionID

	for depth := 0; depth < r.maxRefDepth; depth++ {
		if visited[current] {
			r.logger.Warn("version reference cycle", slog.String("version_id", current))
			return "", nil
		}

		visited[current] = true

		refs, err := api.VersionRefs(ctx, projectID, current)
		if err != nil {
			return "", fmt.Errorf("tree: listing refs of version %s: %w", current, err)
		}

		ref := versionToVersionRef(refs)
		if ref == nil {
			return "", nil
		}

		switch ref.ExtensionType {
		case refTypeCopyDocument:
			current = ref.ID
		case refTypeFileToDocument:
			return ref.ID, nil
		default:
			return "", nil
		}
	}

	r.logger.Warn("version reference chain too deep",
		slog.String("version_id", versionID),
		slog.Int("max_depth", r.maxRefDepth),
	)

	return "", nil
}

func versionToVersionRef(refs []forge.VersionRef) *forge.VersionRef {
	for i := range refs {
		if refs[i].FromType == refEndpointVersions && refs[i].ToType == refEndpointVersions {
			return &refs[i]
		}
	}

	return nil
}

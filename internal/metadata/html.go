package metadata

import (
	"strings"

	"golang.org/x/net/html"
)

// iterateFolders walks an Apache-style directory listing page and returns
// every linked folder name whose prefix matches filterCategory (or every
// folder name if filterCategory is empty), skipping the conventional
// "Parent Directory" entry the same way the original's BeautifulSoup-based
// iterate_folders does.
func iterateFolders(doc string, filterCategory string) ([]string, error) {
	node, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}
	var folders []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href, text string
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = attr.Val
				}
			}
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				text = strings.TrimSpace(n.FirstChild.Data)
			}
			name := strings.TrimSuffix(href, "/")
			if name == "" {
				name = strings.TrimSuffix(text, "/")
			}
			if name != "" && name != ".." && !strings.EqualFold(text, "Parent Directory") {
				if filterCategory == "" || strings.HasPrefix(name, filterCategory) {
					folders = append(folders, name)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return folders, nil
}

// versionExtension is one parsed folder name, split the way
// get_versions_extensions splits "qt5_5150_wasm" into version digits
// "5150" and extension "wasm".
type versionExtension struct {
	Digits    string
	Extension string
}

func getVersionsExtensions(folders []string, category string) []versionExtension {
	var out []versionExtension
	for _, f := range folders {
		rest := strings.TrimPrefix(f, category)
		parts := strings.SplitN(rest, "_", 3)
		if len(parts) < 2 {
			continue
		}
		ve := versionExtension{Digits: parts[1]}
		if len(parts) == 3 {
			ve.Extension = parts[2]
		}
		out = append(out, ve)
	}
	return out
}

package epub

import (
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// OPF is the lookup-friendly form of a package document.
type OPF struct {
	Title         string
	Authors       []string
	Publisher     string
	Language      string
	Description   string
	CoverFilepath string
	CoverMimeType string
	Spine         []SpineItem
}

// SpineItem is one document in reading order. Path is relative to the root
// of the archive.
type SpineItem struct {
	IDRef     string
	Path      string
	MediaType string
}

type Package struct {
	XMLName          xml.Name `xml:"package"`
	Version          string   `xml:"version,attr"`
	UniqueIdentifier string   `xml:"unique-identifier,attr"`
	Metadata         struct {
		Title []struct {
			Text string `xml:",chardata"`
			ID   string `xml:"id,attr"`
		} `xml:"title"`
		Creator []struct {
			Text string `xml:",chardata"`
			ID   string `xml:"id,attr"`
			Role string `xml:"role,attr"`
		} `xml:"creator"`
		Description string `xml:"description"`
		Publisher   string `xml:"publisher"`
		Language    string `xml:"language"`
		Meta        []struct {
			Text     string `xml:",chardata"`
			Name     string `xml:"name,attr"`
			Content  string `xml:"content,attr"`
			Refines  string `xml:"refines,attr"`
			Property string `xml:"property,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Item []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Toc     string `xml:"toc,attr"`
		Itemref []struct {
			Idref  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

func ParseOPF(filename string, r io.ReadCloser) (*OPF, error) {
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	pkg := &Package{}
	err = xml.Unmarshal(b, pkg)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Manifest hrefs are relative to the directory holding the OPF file.
	basePath := path.Dir(filename)
	if basePath == "." {
		basePath = ""
	}
	resolve := func(href string) string {
		href = strings.SplitN(href, "#", 2)[0]
		if basePath == "" {
			return path.Clean(href)
		}
		return path.Join(basePath, href)
	}

	metaProperties := map[string]map[string]string{}
	metaContent := map[string]string{}
	for _, m := range pkg.Metadata.Meta {
		if m.Refines != "" {
			key := strings.ReplaceAll(m.Refines, "#", "")
			if _, ok := metaProperties[key]; !ok {
				metaProperties[key] = map[string]string{}
			}
			metaProperties[key][m.Property] = strings.TrimSpace(m.Text)
		} else if m.Content != "" {
			metaContent[m.Name] = m.Content
		}
	}

	title := ""
	if len(pkg.Metadata.Title) == 1 {
		title = pkg.Metadata.Title[0].Text
	} else if len(pkg.Metadata.Title) > 1 {
		title = pkg.Metadata.Title[0].Text
		for _, t := range pkg.Metadata.Title {
			if t.ID != "" && metaProperties[t.ID]["title-type"] == "main" {
				title = t.Text
				break
			}
		}
	}

	authors := []string{}
	for _, creator := range pkg.Metadata.Creator {
		role := creator.Role
		if role == "" && creator.ID != "" {
			role = metaProperties[creator.ID]["role"]
		}
		if role == "aut" || len(pkg.Metadata.Creator) == 1 {
			authors = append(authors, strings.TrimSpace(creator.Text))
		}
	}

	opf := &OPF{
		Title:       strings.TrimSpace(title),
		Authors:     authors,
		Publisher:   strings.TrimSpace(pkg.Metadata.Publisher),
		Language:    strings.TrimSpace(pkg.Metadata.Language),
		Description: strings.TrimSpace(pkg.Metadata.Description),
	}

	manifest := map[string]int{}
	for i, item := range pkg.Manifest.Item {
		manifest[item.ID] = i
		isCover := item.ID == metaContent["cover"] || strings.Contains(item.Properties, "cover-image")
		if isCover && opf.CoverFilepath == "" {
			opf.CoverFilepath = resolve(item.Href)
			opf.CoverMimeType = item.MediaType
		}
	}

	for _, ref := range pkg.Spine.Itemref {
		if ref.Linear == "no" {
			continue
		}
		idx, ok := manifest[ref.Idref]
		if !ok {
			continue
		}
		item := pkg.Manifest.Item[idx]
		opf.Spine = append(opf.Spine, SpineItem{
			IDRef:     item.ID,
			Path:      resolve(item.Href),
			MediaType: item.MediaType,
		})
	}

	return opf, nil
}

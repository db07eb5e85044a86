package books

import (
	"strings"

	"github.com/mylibrary/mylibrary/pkg/models"
)

var contentTypes = map[string]string{
	models.FileTypeEPUB: "application/epub+zip",
	models.FileTypePDF:  "application/pdf",
	models.FileTypeCBZ:  "application/vnd.comicbook+zip",
	models.FileTypeCBR:  "application/vnd.comicbook-rar",
}

var filenameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "\"", "'",
	"*", "", "?", "", "<", "", ">", "", "|", "",
)

// downloadFilename builds "Author - Title.ext", dropping characters that
// aren't safe in filenames or the Content-Disposition header.
func downloadFilename(book *models.Book) string {
	name := book.Title
	if author := book.DisplayAuthor(); author != "" {
		name = author + " - " + name
	}
	name = strings.TrimSpace(filenameReplacer.Replace(name))
	if name == "" {
		name = "book"
	}
	return name + "." + book.FileType
}

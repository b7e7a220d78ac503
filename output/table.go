package output

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"

	"github.com/scipunch/ainews/article"
)

const (
	titleWidth  = 60
	sourceWidth = 22
	dateWidth   = 16
)

// PrintTable lists articles one per line. Columns are measured in terminal
// cells so CJK titles and emoji categories stay aligned.
func PrintTable(w io.Writer, articles []article.Article) error {
	for i, a := range articles {
		_, err := fmt.Fprintf(w, "%2d  %s  %s  %s\n",
			i+1,
			cell(a.Date, dateWidth),
			cell(a.Source, sourceWidth),
			runewidth.Truncate(a.Title, titleWidth, "…"),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func cell(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

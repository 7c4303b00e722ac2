package templates

import (
	"embed"
	"html/template"

	"github.com/TIANLI0/LeafScan/utils"
)

//go:embed *.html
var files embed.FS

var funcs = template.FuncMap{
	"percent": func(v float64, digits int) string {
		return utils.FormatPercent(v, digits) + "%"
	},
	"inc": func(i int) int {
		return i + 1
	},
}

// Parse 解析内嵌的页面模板
func Parse() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "*.html")
}

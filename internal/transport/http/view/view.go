// Package view 内嵌的 HTML 模板。
package view

import (
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var files embed.FS

var funcs = template.FuncMap{
	// NULL 列显示为空
	"str": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// Load 解析全部模板，模板名即文件名（如 index.tmpl）
func Load() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.tmpl")
}

func MustLoad() *template.Template {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

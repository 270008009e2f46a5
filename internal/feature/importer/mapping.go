// Package importer 把诊所名单表格的行映射成 PracticeFields。
package importer

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gp-directory/internal/domain"
)

// HeaderMarker 含此单元格的第一行视为表头
const HeaderMarker = "practice name"

type field int

const (
	fCode field = iota
	fName
	fPartnership
	fNeighbourhood
	fArea
	fAddr1
	fAddr2
	fAddr3
	fPostcode
	fTelephone
	fEmail
	fRegion
)

// 表头别名（小写、去空白后比较）
var aliases = map[string]field{
	"practice code":          fCode,
	"p code":                 fCode,
	"p/code":                 fCode,
	"code":                   fCode,
	"practice name":          fName,
	"partnership name":       fPartnership,
	"neighbourhood":          fNeighbourhood,
	"neighborhood":           fNeighbourhood,
	"area":                   fArea,
	"ccg":                    fArea,
	"network":                fArea,
	"address 1":              fAddr1,
	"address line 1":         fAddr1,
	"address line1":          fAddr1,
	"address 2":              fAddr2,
	"address line 2":         fAddr2,
	"address 3":              fAddr3,
	"address line 3":         fAddr3,
	"postcode":               fPostcode,
	"post code":              fPostcode,
	"telephone":              fTelephone,
	"telephone number":       fTelephone,
	"tel no":                 fTelephone,
	"generic email":          fEmail,
	"email":                  fEmail,
	"practice email address": fEmail,
	"region":                 fRegion,
}

// 定位映射用的字段名，与 gps 表列名一致
var fieldNames = map[string]field{
	"practice_code":    fCode,
	"practice_name":    fName,
	"partnership_name": fPartnership,
	"neighbourhood":    fNeighbourhood,
	"area":             fArea,
	"address_line1":    fAddr1,
	"address_line2":    fAddr2,
	"address_line3":    fAddr3,
	"postcode":         fPostcode,
	"telephone":        fTelephone,
	"email":            fEmail,
	"region":           fRegion,
}

var ErrBadColumns = errors.New("invalid column layout")

// Mapping 列下标 -> 字段
type Mapping struct {
	cols map[field]int
}

func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// IsHeader 判断一行是否为表头
func IsHeader(row []string) bool {
	for _, c := range row {
		if normalizeHeader(c) == HeaderMarker {
			return true
		}
	}
	return false
}

// NewMapping 按表头建立映射；同一字段出现多列时取第一列
func NewMapping(header []string) (*Mapping, bool) {
	m := &Mapping{cols: make(map[field]int)}
	for i, h := range header {
		f, ok := aliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := m.cols[f]; !seen {
			m.cols[f] = i
		}
	}
	_, hasName := m.cols[fName]
	return m, hasName
}

// ParseColumns 解析无表头表格的定位映射，如 "practice_name=5,postcode=8"（下标从 0 开始）
func ParseColumns(columns string) (*Mapping, error) {
	m := &Mapping{cols: make(map[field]int)}
	for _, part := range strings.Split(columns, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, idx, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not field=index", ErrBadColumns, part)
		}
		f, ok := fieldNames[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrBadColumns, strings.TrimSpace(name))
		}
		i, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil || i < 0 {
			return nil, fmt.Errorf("%w: bad index in %q", ErrBadColumns, part)
		}
		m.cols[f] = i
	}
	if _, ok := m.cols[fName]; !ok {
		return nil, fmt.Errorf("%w: practice_name is required", ErrBadColumns)
	}
	return m, nil
}

// Layout 已知的无表头表格：列位置 + 整表固定的 area/region
type Layout struct {
	Columns string
	Defaults
}

var Layouts = map[string]Layout{
	"manchester": {
		Columns:  "neighbourhood=2,practice_code=3,practice_name=5,address_line1=6,postcode=8,telephone=9,email=10",
		Defaults: Defaults{Area: "Manchester", Region: "Manchester"},
	},
}

// LayoutNames 用于命令行帮助
func LayoutNames() []string {
	out := make([]string, 0, len(Layouts))
	for k := range Layouts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ResolveLayout 合并 --layout 与 --columns；两者都为空时返回 nil，按表头识别。
// 显式给出的 defaults 优先于布局自带的值
func ResolveLayout(name, columns string, d Defaults) (*Mapping, Defaults, error) {
	if name != "" {
		l, ok := Layouts[strings.ToLower(name)]
		if !ok {
			return nil, d, fmt.Errorf("%w: unknown layout %q (known: %s)", ErrBadColumns, name, strings.Join(LayoutNames(), ", "))
		}
		if columns == "" {
			columns = l.Columns
		}
		if d.Area == "" {
			d.Area = l.Area
		}
		if d.Region == "" {
			d.Region = l.Region
		}
	}
	if columns == "" {
		return nil, d, nil
	}
	m, err := ParseColumns(columns)
	return m, d, err
}

func (m *Mapping) cell(row []string, f field) string {
	i, ok := m.cols[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Defaults 表中缺列时的填充值（如整张表同属一个 region）
type Defaults struct {
	Area   string
	Region string
}

// Row 映射一行；名称为空返回 false（跳过）
func (m *Mapping) Row(row []string, d Defaults) (domain.PracticeFields, bool) {
	f := domain.PracticeFields{
		PracticeCode:    m.cell(row, fCode),
		PracticeName:    m.cell(row, fName),
		PartnershipName: m.cell(row, fPartnership),
		Neighbourhood:   m.cell(row, fNeighbourhood),
		Area:            m.cell(row, fArea),
		AddressLine1:    m.cell(row, fAddr1),
		AddressLine2:    m.cell(row, fAddr2),
		AddressLine3:    m.cell(row, fAddr3),
		Postcode:        m.cell(row, fPostcode),
		Telephone:       m.cell(row, fTelephone),
		Email:           m.cell(row, fEmail),
		Region:          m.cell(row, fRegion),
	}
	if f.PracticeName == "" {
		return f, false
	}
	if f.Area == "" {
		f.Area = d.Area
	}
	if f.Region == "" {
		f.Region = d.Region
	}
	return f, true
}

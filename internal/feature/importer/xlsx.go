package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"gp-directory/internal/domain"
)

var ErrNoHeader = errors.New("no header row with a practice name column")

// Store 导入只需要的写接口（PracticeService 满足）
type Store interface {
	Create(ctx context.Context, f domain.PracticeFields) (*domain.Practice, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type Options struct {
	Sheet   string   // 为空取活动工作表
	Replace bool     // 导入前清空
	Columns *Mapping // 非空时按列位置读取，整张表都是数据行
	Defaults
}

type Result struct {
	Removed  int64
	Inserted int
	Skipped  int
}

// RunImport 读取一个 xlsx 文件写入诊所表；表头之前的行忽略，名称为空的行计入 Skipped。
// 给了 Columns 时不找表头
func RunImport(ctx context.Context, store Store, path string, opts Options, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var res Result

	f, err := excelize.OpenFile(path)
	if err != nil {
		return res, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return res, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	m, body := opts.Columns, rows
	if m == nil {
		if m, body, err = findHeader(rows); err != nil {
			return res, err
		}
	}

	if opts.Replace {
		n, err := store.DeleteAll(ctx)
		if err != nil {
			return res, fmt.Errorf("clear practices: %w", err)
		}
		res.Removed = n
		log.Info("existing practices removed", zap.Int64("count", n))
	}

	for _, row := range body {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		fields, ok := m.Row(row, opts.Defaults)
		if !ok {
			res.Skipped++
			continue
		}
		if _, err := store.Create(ctx, fields); err != nil {
			if errors.Is(err, domain.ErrValidation) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("insert %q: %w", fields.PracticeName, err)
		}
		res.Inserted++
	}
	log.Info("import done",
		zap.String("file", path),
		zap.String("sheet", sheet),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func findHeader(rows [][]string) (*Mapping, [][]string, error) {
	for i, row := range rows {
		if !IsHeader(row) {
			continue
		}
		m, ok := NewMapping(row)
		if !ok {
			return nil, nil, ErrNoHeader
		}
		return m, rows[i+1:], nil
	}
	return nil, nil, ErrNoHeader
}

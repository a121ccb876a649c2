package query

import (
	"strconv"
	"strings"
)

// PageSize 所有列表接口固定每页 20 条
const PageSize = 20

// Page 1-based 页码，小于 1 一律按 1 处理
type Page struct {
	Number int
}

func NewPage(number int) Page {
	if number < 1 {
		number = 1
	}
	return Page{Number: number}
}

// ParsePage 解析 pageNumber 查询参数，空字符串为第一页
func ParsePage(raw string) (Page, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NewPage(1), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Page{}, &ParamError{Param: "pageNumber", Value: raw, Err: err}
	}
	return NewPage(n), nil
}

func (p Page) Limit() int {
	return PageSize
}

func (p Page) Offset() int {
	return PageSize * (NewPage(p.Number).Number - 1)
}

// HasMore total 为不去重前的总数时结果会偏大，调用方必须传 distinct count
func (p Page) HasMore(total int64, returned int) bool {
	return total > int64(p.Offset()+returned)
}

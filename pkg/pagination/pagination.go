package pagination

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultSize = 10
	MaxSize     = 500
)

// Params is a zero-based page request read from ?page=&size=&sort=column,direction.
type Params struct {
	Page      int
	Size      int
	SortBy    string
	Ascending bool
}

// FromContext extracts page parameters from the echo context.
func FromContext(c echo.Context) Params {
	p := Params{Ascending: true}

	p.Page, _ = strconv.Atoi(c.QueryParam("page"))
	if p.Page < 0 {
		p.Page = 0
	}

	p.Size, _ = strconv.Atoi(c.QueryParam("size"))
	if p.Size <= 0 {
		p.Size = DefaultSize
	}
	if p.Size > MaxSize {
		p.Size = MaxSize
	}

	if sort := c.QueryParam("sort"); sort != "" {
		col, dir, _ := strings.Cut(sort, ",")
		p.SortBy = col
		p.Ascending = !strings.EqualFold(dir, "desc")
	}
	return p
}

func (p Params) Limit() int  { return p.Size }
func (p Params) Offset() int { return p.Page * p.Size }

// Response mirrors a page of results with its position in the full set.
type Response struct {
	Content       interface{} `json:"content"`
	TotalElements int         `json:"totalElements"`
	TotalPages    int         `json:"totalPages"`
	Number        int         `json:"number"`
	Size          int         `json:"size"`
	Last          bool        `json:"last"`
}

func NewResponse(content interface{}, total int, p Params) *Response {
	pages := 0
	if p.Size > 0 {
		pages = (total + p.Size - 1) / p.Size
	}
	return &Response{
		Content:       content,
		TotalElements: total,
		TotalPages:    pages,
		Number:        p.Page,
		Size:          p.Size,
		Last:          p.Page+1 >= pages,
	}
}

package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/service"
)

// parseListQuery reads the filter and sort parameters shared by the request
// list and the report exports: search, status, start, end, sort, dir.
func parseListQuery(c *gin.Context) (service.Filter, service.SortSpec, map[string]string) {
	fields := map[string]string{}

	f := service.Filter{
		Search: c.Query("search"),
		Status: strings.ToLower(c.DefaultQuery("status", service.StatusAll)),
		Start:  c.Query("start"),
		End:    c.Query("end"),
	}
	if f.Status != service.StatusAll {
		if _, ok := model.ParseStatus(f.Status); !ok {
			fields["status"] = fmt.Sprintf("status harus salah satu dari: %s, pending, approved, rejected", service.StatusAll)
		}
	}

	var s service.SortSpec
	if raw := c.Query("sort"); raw != "" {
		field, ok := service.ParseSortField(raw)
		if !ok {
			fields["sort"] = "kolom pengurutan tidak dikenal"
		}
		s.Field = field
	}
	switch strings.ToLower(c.DefaultQuery("dir", "asc")) {
	case "asc":
	case "desc":
		s.Desc = true
	default:
		fields["dir"] = "dir harus asc atau desc"
	}

	if len(fields) > 0 {
		return f, s, fields
	}
	return f, s, nil
}

func parsePage(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(service.DefaultPerPage)))
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

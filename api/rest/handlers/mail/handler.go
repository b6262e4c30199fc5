package mail

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/utils"
)

// CacheHeader tells the UI whether a response came from the thread cache.
const CacheHeader = "X-Cache"

type MailHandler struct {
	mail interfaces.MailService
}

func NewMailHandler(mail interfaces.MailService) *MailHandler {
	return &MailHandler{mail: mail}
}

func queryOptions(c *gin.Context) models.QueryOptions {
	return models.QueryOptions{
		Revalidate: queryBool(c, "revalidate"),
		Background: queryBool(c, "swr"),
	}
}

func queryBool(c *gin.Context, key string) bool {
	value, err := strconv.ParseBool(c.Query(key))
	return err == nil && value
}

// queryMax falls back to the default for anything that is not a positive integer.
func queryMax(c *gin.Context) int64 {
	value, err := strconv.ParseInt(c.Query("max"), 10, 64)
	if err != nil || value <= 0 {
		return models.DefaultMaxResults
	}
	return value
}

func queryList(c *gin.Context, key string) []string {
	var values []string
	for _, raw := range c.QueryArray(key) {
		values = append(values, utils.StringToSlice(raw)...)
	}
	return values
}

func setCacheHeader(c *gin.Context, status enum.CacheStatus) {
	if status != "" {
		c.Header(CacheHeader, status.String())
	}
}

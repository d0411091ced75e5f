package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arledger/backend/internal/interfaces/http/dto"
)

// SwaggerConfig guards the API documentation endpoint. With an empty
// AllowedIPs list any client may reach the docs; entries may be single
// addresses or CIDR ranges.
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	AllowedIPs  []string
}

// ipAllowList holds the parsed form of SwaggerConfig.AllowedIPs.
type ipAllowList struct {
	ips  []net.IP
	nets []*net.IPNet
}

func parseAllowList(entries []string) ipAllowList {
	var list ipAllowList
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				list.nets = append(list.nets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			list.ips = append(list.ips, ip)
		}
	}
	return list
}

func (l ipAllowList) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range l.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range l.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SwaggerProtection gates the swagger routes. A disabled endpoint answers
// 404 so the docs' existence is not advertised; an IP outside the allow
// list gets 403. When RequireAuth is set the supplied auth middleware runs
// before the docs handler.
func SwaggerProtection(cfg SwaggerConfig, authMiddleware gin.HandlerFunc) gin.HandlerFunc {
	allowList := parseAllowList(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound,
				dto.NewErrorResponse("NOT_FOUND", "API documentation is not available"))
			return
		}

		if len(cfg.AllowedIPs) > 0 && !allowList.contains(clientIP(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse("FORBIDDEN", "Access to API documentation is restricted"))
			return
		}

		if cfg.RequireAuth && authMiddleware != nil {
			authMiddleware(c)
			if c.IsAborted() {
				return
			}
		}

		c.Next()
	}
}

// clientIP resolves the caller's address, preferring gin's ClientIP which
// honors trusted proxy headers.
func clientIP(c *gin.Context) net.IP {
	if parsed := net.ParseIP(c.ClientIP()); parsed != nil {
		return parsed
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	return net.ParseIP(host)
}

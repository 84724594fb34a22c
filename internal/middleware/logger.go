package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request with logrus.  Responses with a
// status of 400 or more are logged at error level.
func RequestLogger(log *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			entry := log.WithFields(logrus.Fields{
				"method":     req.Method,
				"path":       req.URL.Path,
				"status":     res.Status,
				"duration":   time.Since(start).String(),
				"ip":         c.RealIP(),
				"user_agent": req.UserAgent(),
				"request_id": res.Header().Get(echo.HeaderXRequestID),
			})
			if id, ok := UserID(c); ok {
				entry = entry.WithField("user_id", id)
			}
			if res.Status >= 400 {
				if err != nil {
					entry = entry.WithError(err)
				}
				entry.Error("request failed")
			} else {
				entry.Info("request handled")
			}
			return nil
		}
	}
}

package app

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gps_tracker/internal/mapview"
	"github.com/relabs-tech/gps_tracker/internal/middleware"
	"github.com/relabs-tech/gps_tracker/internal/tracker"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// TrackingControl is the part of the tracker the web UI drives.
type TrackingControl interface {
	StartTracking() error
	Tracking() bool
}

// PermissionPrompt is the permission dialog as seen from the web UI.
type PermissionPrompt interface {
	Granted() bool
	Pending() bool
	Resolve(granted bool)
}

type permissionRequest struct {
	Granted *bool `json:"granted" binding:"required"`
}

// NewRouter builds the map UI and its JSON/websocket API.
// Static files are served from staticDir when it is not empty.
func NewRouter(tc TrackingControl, perms PermissionPrompt, view *mapview.MapView, staticDir string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/tracking/start", func(c *gin.Context) {
			err := tc.StartTracking()
			switch {
			case errors.Is(err, tracker.ErrPermissionRequired):
				c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "prompt": true})
			case err != nil:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusAccepted, gin.H{"tracking": true})
			}
		})

		api.GET("/tracking", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"tracking": tc.Tracking()})
		})

		api.GET("/permission", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"granted": perms.Granted(), "pending": perms.Pending()})
		})

		// The prompt's answer. Tracking is not started automatically.
		api.POST("/permission", func(c *gin.Context) {
			var req permissionRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"granted\": bool}"})
				return
			}
			perms.Resolve(*req.Granted)
			c.JSON(http.StatusOK, gin.H{"granted": perms.Granted(), "pending": perms.Pending()})
		})

		api.GET("/map", func(c *gin.Context) {
			c.JSON(http.StatusOK, view.Snapshot())
		})

		api.GET("/map/badge.png", func(c *gin.Context) {
			c.Header("Content-Type", "image/png")
			c.Header("Cache-Control", "no-store")
			if err := mapview.WriteBadgePNG(c.Writer, view.Snapshot()); err != nil {
				log.Printf("web: badge encode error: %v", err)
			}
		})
	}

	r.GET("/ws/map", handleMapWS(view))

	if staticDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(staticDir))))
	}

	return r
}

// handleMapWS pushes the map state on connect and after every redraw.
// Slow clients only ever get the latest state.
func handleMapWS(view *mapview.MapView) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		updates := make(chan mapview.State, 1)
		cancel := view.Observe(func(s mapview.State) {
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- s:
			default:
			}
		})
		defer cancel()

		// reader only detects close
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						log.Printf("web: websocket error: %v", err)
					}
					return
				}
			}
		}()

		if err := conn.WriteJSON(view.Snapshot()); err != nil {
			return
		}

		for {
			select {
			case <-closed:
				return
			case s := <-updates:
				if err := conn.WriteJSON(s); err != nil {
					log.Printf("web: websocket write error: %v", err)
					return
				}
			}
		}
	}
}

package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/area"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/theme"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/widget"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/utils"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Deps holds the components the handlers call into.
type Deps struct {
	Backend     store.Backend
	Widgets     *widget.Registry
	WidgetStore *widget.Store
	Themes      *theme.Registry
	Coordinator *theme.Coordinator
	Areas       *area.Registry
	Metrics     *monitoring.Metrics
	Logger      *zap.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	backend     store.Backend
	widgets     *widget.Registry
	widgetStore *widget.Store
	themes      *theme.Registry
	coordinator *theme.Coordinator
	areas       *area.Registry
	metrics     *monitoring.Metrics
	hasher      *utils.Hasher
	logger      *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(d Deps) *Handlers {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		backend:     d.Backend,
		widgets:     d.Widgets,
		widgetStore: d.WidgetStore,
		themes:      d.Themes,
		coordinator: d.Coordinator,
		areas:       d.Areas,
		metrics:     d.Metrics,
		hasher:      utils.DefaultHasher(),
		logger:      logger,
	}
}

// Health reports liveness and store reachability
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{"status": "healthy", "store": "ok"}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	if err := h.backend.Ping(c.Request.Context()); err != nil {
		body["status"] = "degraded"
		body["store"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// ListWidgetManifests lists installed widgets
func (h *Handlers) ListWidgetManifests(c *gin.Context) {
	list, err := h.widgets.GetManifests(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondTagged(c, gin.H{"manifests": list})
}

// ListThemeManifests lists installed themes
func (h *Handlers) ListThemeManifests(c *gin.Context) {
	list, err := h.themes.GetManifests(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondTagged(c, gin.H{"manifests": list})
}

// respondTagged writes body with an ETag, or 304 when the client has it
func (h *Handlers) respondTagged(c *gin.Context, body gin.H) {
	tag, err := h.hasher.ETag(body)
	if err != nil {
		c.JSON(http.StatusOK, body)
		return
	}
	c.Header("ETag", tag)
	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, body)
}

// InvalidateManifests drops both manifest caches
func (h *Handlers) InvalidateManifests(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.widgets.InvalidateManifests(ctx); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.themes.InvalidateManifests(ctx); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invalidated": []string{"widget", "theme"}})
}

// ActivateTheme activates a theme and installs its assets
func (h *Handlers) ActivateTheme(c *gin.Context) {
	ctx := c.Request.Context()
	act, err := h.coordinator.ActivateTheme(ctx, c.Param("folder"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.themes.InstallExtension(ctx, &theme.Theme{Folder: act.Folder}); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, act)
}

// ListAreas returns the system and current theme areas
func (h *Handlers) ListAreas(c *gin.Context) {
	areas, err := h.areas.GetCurrentThemeAreas(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"areas": areas})
}

// GetArea returns one area
func (h *Handlers) GetArea(c *gin.Context) {
	a, err := h.areas.GetArea(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type createWidgetRequest struct {
	Folder string `json:"folder" binding:"required"`
}

// CreateWidget creates a widget with default settings
func (h *Handlers) CreateWidget(c *gin.Context) {
	var req createWidgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	id, err := h.createWidget(ctx, req.Folder)
	if err != nil {
		h.fail(c, err)
		return
	}
	inst, err := h.instance(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inst)
}

// createWidget installs the widget's assets and stores a default instance
func (h *Handlers) createWidget(ctx context.Context, folder string) (int64, error) {
	w, err := h.widgetStore.Types().New(folder)
	if err != nil {
		return 0, err
	}
	if err := h.widgets.InstallExtension(ctx, w); err != nil {
		return 0, err
	}
	return h.widgetStore.CreateFrom(ctx, w, folder)
}

// GetWidget returns one widget with its settings
func (h *Handlers) GetWidget(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	inst, err := h.instance(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (h *Handlers) instance(ctx context.Context, id int64) (widget.Instance, error) {
	w, err := h.widgets.GetExtension(ctx, id)
	if err != nil {
		return widget.Instance{}, err
	}
	manifests, err := h.widgets.GetManifests(ctx)
	if err != nil {
		return widget.Instance{}, err
	}
	return widget.NewInstance(w, manifests), nil
}

// UpdateWidget replaces a widget's settings. The body is decoded into the
// widget's own type.
func (h *Handlers) UpdateWidget(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	current, err := h.widgets.GetExtension(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	next, err := h.widgetStore.Types().New(current.ExtensionFolder())
	if err != nil {
		h.fail(c, err)
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := sonic.ConfigStd.Unmarshal(body, next); err != nil {
		badRequest(c, "invalid widget settings: "+err.Error())
		return
	}
	if err := h.widgetStore.Update(ctx, id, next); err != nil {
		h.fail(c, err)
		return
	}
	inst, err := h.instance(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

// DeleteWidget removes a widget, first taking it out of areaId when given
func (h *Handlers) DeleteWidget(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if areaID := c.Query("areaId"); areaID != "" {
		if err := h.areas.RemoveWidgetFromArea(ctx, id, areaID); err != nil {
			h.fail(c, err)
			return
		}
	}
	if err := h.widgetStore.Delete(ctx, id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

type addToAreaRequest struct {
	Folder     string `json:"folder"`
	WidgetID   int64  `json:"widgetId"`
	AreaFromID string `json:"areaFromId"`
	AreaToID   string `json:"areaToId" binding:"required"`
	Index      int    `json:"index"`
}

// AddWidgetToArea handles a drop onto an area: either a new widget from the
// palette (folder) or an existing widget dragged from another area.
func (h *Handlers) AddWidgetToArea(c *gin.Context) {
	var req addToAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	widgetID, created := req.WidgetID, false
	if widgetID <= 0 {
		if req.Folder == "" {
			badRequest(c, "either folder or widgetId is required")
			return
		}
		id, err := h.createWidget(ctx, req.Folder)
		if err != nil {
			h.fail(c, err)
			return
		}
		widgetID, created = id, true
	}

	inst, err := h.areas.AddWidgetToArea(ctx, widgetID, req.AreaToID, req.Index)
	if err != nil {
		if created {
			if derr := h.widgetStore.Delete(ctx, widgetID); derr != nil {
				h.logger.Warn("Failed to discard unplaced widget", zap.Int64("id", widgetID), zap.Error(derr))
			}
		}
		h.fail(c, err)
		return
	}
	// Leave the source area only once the target holds the widget
	if req.AreaFromID != "" && !strings.EqualFold(req.AreaFromID, req.AreaToID) {
		if err := h.areas.RemoveWidgetFromArea(ctx, widgetID, req.AreaFromID); err != nil {
			h.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, inst)
}

type reorderRequest struct {
	WidgetID int64  `json:"widgetId" binding:"required"`
	AreaID   string `json:"areaId" binding:"required"`
	Index    int    `json:"index"`
}

// ReorderWidget moves a widget within its area
func (h *Handlers) ReorderWidget(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	if err := h.areas.OrderWidgetInArea(ctx, req.WidgetID, req.AreaID, req.Index); err != nil {
		h.fail(c, err)
		return
	}
	a, err := h.areas.GetArea(ctx, req.AreaID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// RemoveWidgetFromArea takes a widget out of an area without deleting it
func (h *Handlers) RemoveWidgetFromArea(c *gin.Context) {
	id, ok := parseID(c, "widgetId")
	if !ok {
		return
	}
	if err := h.areas.RemoveWidgetFromArea(c.Request.Context(), id, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": id, "areaId": c.Param("id")})
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

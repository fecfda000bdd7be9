package handlers

import (
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	geojson "github.com/paulmach/go.geojson"
)

// GetNearbyGeoJSON handles GET /reports/nearby/:lat/:lng/geojson. It returns
// the same radius query as GetNearby as a FeatureCollection for map clients.
func (h *ReportsHandler) GetNearbyGeoJSON(c *gin.Context) {
	lat, lng, ok := h.parseLatLng(c)
	if !ok {
		return
	}
	radius, err := strconv.ParseFloat(c.DefaultQuery("radius", "10"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid radius"})
		return
	}

	reports, err := h.reports.FindNearby(c.Request.Context(), lat, lng, radius, intQuery(c, "limit", 20))
	if err != nil {
		log.Errorf("Error fetching nearby reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch nearby reports"})
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, r := range reports {
		f := geojson.NewPointFeature([]float64{r.Coordinates.Lng, r.Coordinates.Lat})
		f.SetProperty("reportId", r.ReportID)
		f.SetProperty("reportType", r.ReportType)
		f.SetProperty("severity", r.Severity)
		f.SetProperty("status", r.Status)
		f.SetProperty("priority", r.Priority)
		f.SetProperty("title", r.Title)
		f.SetProperty("location", r.Location)
		fc.AddFeature(f)
	}

	c.JSON(http.StatusOK, fc)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calledit/calledit/internal/auth"
	"github.com/calledit/calledit/internal/predictions"
)

type categorizeRequest struct {
	Text string `json:"text" binding:"required"`
}

func (r *Router) createPrediction(c *gin.Context) (int, interface{}, error) {
	var in predictions.CreateInput
	if err := bindJSON(c, &in); err != nil {
		return 0, nil, err
	}

	view, err := r.services.Predictions.Create(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, gin.H{"prediction": view}, nil
}

func (r *Router) categorizePrediction(c *gin.Context) (int, interface{}, error) {
	var req categorizeRequest
	if err := bindJSON(c, &req); err != nil {
		return 0, nil, err
	}

	suggestion, err := r.services.Predictions.Categorize(c.Request.Context(), req.Text)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, gin.H{"suggestion": suggestion}, nil
}

func (r *Router) getPrediction(c *gin.Context) (int, interface{}, error) {
	view, err := r.services.Predictions.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, gin.H{"prediction": view}, nil
}

func (r *Router) updatePrediction(c *gin.Context) (int, interface{}, error) {
	var in predictions.UpdateInput
	if err := bindJSON(c, &in); err != nil {
		return 0, nil, err
	}

	if err := r.services.Predictions.Update(c.Request.Context(), auth.UserID(c), in); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, success, nil
}

func (r *Router) deletePrediction(c *gin.Context) (int, interface{}, error) {
	if err := r.services.Predictions.Delete(c.Request.Context(), auth.UserID(c), c.Query("id")); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, success, nil
}

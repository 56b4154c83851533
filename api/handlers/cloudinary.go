package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	cloudinaryapi "github.com/cloudinary/cloudinary-go/v2/api"

	"github.com/openward/ward-feedback-api/config"
)

// CloudinaryHandler handles Cloudinary related requests
type CloudinaryHandler struct{}

// GenerateSignature generates a signature for Cloudinary attachment uploads
func (c CloudinaryHandler) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("upload_preset", os.Getenv("CLOUDINARY_UPLOAD_PRESET"))

	signature, err := cloudinaryapi.SignParameters(params, os.Getenv("CLOUDINARY_API_SECRET"))
	if err != nil {
		config.ErrorStatus("failed to sign upload parameters", http.StatusInternalServerError, w, err)
		return
	}

	response := map[string]string{
		"timestamp": timestamp,
		"signature": signature,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

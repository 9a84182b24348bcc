package manifest

import (
	"net/http"

	"gopkg.in/yaml.v3"
)

// Handler serves the manifest as YAML so hosts can discover the properties
func Handler(m *Manifest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := yaml.Marshal(m)
		if err != nil {
			http.Error(w, "failed to encode manifest", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

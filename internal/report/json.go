package report

import (
	"encoding/json"
	"os"

	"github.com/segdeploy/regmatrix/internal/matrix"
)

func WriteJSON(path string, r matrix.Report) error {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

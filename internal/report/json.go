package report

import (
	"github.com/KaramelBytes/retention-cli/internal/audit"
	"github.com/KaramelBytes/retention-cli/internal/utils"
)

// JSON renders the audit as indented JSON.
func JSON(r *audit.Report) ([]byte, error) {
	return utils.PrettyJSON(r)
}

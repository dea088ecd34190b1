package globals

import (
	_ "embed"
	"strings"
)

const CLOUDINV_USER_AGENT = "cloudinv"
const CLOUDINV_LOG_FILE_DIR_NAME = ".cloudinv"
const CLOUDINV_BASE_DIRECTORY = "cloudinv-output"

var CLOUDINV_VERSION string = strings.TrimSpace(version)

//go:embed VERSION
var version string

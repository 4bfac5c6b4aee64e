// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package properties

var (
	// Overwritten at build time with -ldflags "-X jsoncfg/tool/internal/properties.ModuleVersion=...".
	ModuleVersion string = "develop"
	ModuleName    string = "jsoncfg"
)

// UserAgent identifies the tool in logs and the version command.
func UserAgent() string {
	return ModuleName + "/" + ModuleVersion
}

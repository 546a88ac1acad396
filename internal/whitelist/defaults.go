package whitelist

// DefaultProfiles returns the built-in command profile set covering the
// application's IPC surface. Configuration may replace or extend it; the
// set here is the fallback when no profile file is given.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:           "get_app_info",
			Classification: ClassPublic,
			RiskScore:      5,
			Description:    "read application name and version",
		},
		{
			Name:           "get_system_info",
			Classification: ClassAuthenticated,
			RiskScore:      10,
			Description:    "read host platform information",
		},
		{
			Name:                "load_settings",
			Classification:      ClassAuthenticated,
			RequiredPermissions: []string{"settings.read"},
			RiskScore:           10,
			Description:         "read persisted user settings",
		},
		{
			Name:                "save_settings",
			Classification:      ClassAuthenticated,
			RequiredPermissions: []string{"settings.write"},
			RiskScore:           30,
			MaxPerMinute:        30,
			Description:         "persist user settings",
		},
		{
			Name:                "read_file",
			Classification:      ClassPrivileged,
			RequiredPermissions: []string{"fs.read"},
			RiskScore:           35,
			Description:         "read a file inside the workspace",
		},
		{
			Name:                "write_file",
			Classification:      ClassPrivileged,
			RequiredPermissions: []string{"fs.write"},
			BlockedArgPatterns:  []string{`(?i)/etc/`, `(?i)\.ssh`, `(?i)authorized_keys`},
			RiskScore:           55,
			MaxPerMinute:        20,
			Description:         "write a file inside the workspace",
		},
		{
			Name:                "delete_file",
			Classification:      ClassPrivileged,
			RequiredPermissions: []string{"fs.delete"},
			BlockedArgPatterns:  []string{`(?i)/etc/`, `(?i)\*`},
			RiskScore:           60,
			MaxPerMinute:        10,
			Description:         "delete a file inside the workspace",
		},
		{
			Name:                "list_directory",
			Classification:      ClassAuthenticated,
			RequiredPermissions: []string{"fs.read"},
			RiskScore:           15,
			Description:         "list workspace directory contents",
		},
		{
			Name:                "create_project",
			Classification:      ClassPrivileged,
			RequiredPermissions: []string{"project.create"},
			RiskScore:           40,
			Description:         "scaffold a new project",
		},
		{
			Name:                "open_project",
			Classification:      ClassAuthenticated,
			RequiredPermissions: []string{"project.open"},
			RiskScore:           20,
			Description:         "open an existing project",
		},
		{
			Name:                "run_command",
			Classification:      ClassAdministrative,
			RequiredPermissions: []string{"system.execute"},
			AllowedArgPatterns:  []string{`"command"\s*:\s*"[a-zA-Z0-9_./ -]+"`},
			BlockedArgPatterns:  []string{`(?i)rm\s+-rf`, `(?i)sudo`, "[;&|`$]"},
			RiskScore:           80,
			MaxPerMinute:        5,
			RequiresMFA:         true,
			Description:         "execute a process on behalf of the workspace",
		},
		{
			Name:                "container_start",
			Classification:      ClassPrivileged,
			RequiredPermissions: []string{"container.manage"},
			RiskScore:           50,
			MaxPerMinute:        15,
			Description:         "start a managed container",
		},
		{
			Name:                "container_stop",
			Classification:      ClassPrivileged,
			RequiredPermissions: []string{"container.manage"},
			RiskScore:           50,
			MaxPerMinute:        15,
			Description:         "stop a managed container",
		},
		{
			Name:                "container_list",
			Classification:      ClassAuthenticated,
			RequiredPermissions: []string{"container.manage"},
			RiskScore:           15,
			Description:         "list managed containers",
		},
		{
			Name:                "install_extension",
			Classification:      ClassAdministrative,
			RequiredPermissions: []string{"extension.install"},
			RiskScore:           70,
			MaxPerMinute:        5,
			RequiresMFA:         true,
			Description:         "install an extension package",
		},
		{
			Name:                "update_app",
			Classification:      ClassAdministrative,
			RequiredPermissions: []string{"app.update"},
			RiskScore:           75,
			RequiresMFA:         true,
			Conditions:          []string{"confirm"},
			Description:         "apply an application update",
		},
		{
			Name:                "export_logs",
			Classification:      ClassPrivileged,
			RequiredPermissions: []string{"logs.export"},
			RiskScore:           35,
			Description:         "export diagnostic logs",
		},
		{
			Name:                "clear_cache",
			Classification:      ClassPrivileged,
			RequiredPermissions: []string{"cache.clear"},
			RiskScore:           30,
			Description:         "clear the application cache tiers",
		},
		{
			Name:                "factory_reset",
			Classification:      ClassRestricted,
			RequiredPermissions: []string{"admin"},
			RiskScore:           95,
			MaxPerMinute:        1,
			RequiresMFA:         true,
			Conditions:          []string{"confirm", "backup.complete"},
			Description:         "wipe all local state",
		},
		{
			Name:           "debug_eval",
			Classification: ClassBlocked,
			RiskScore:      100,
			Description:    "legacy arbitrary-code endpoint, permanently disabled",
		},
		{
			Name:           "legacy_exec",
			Classification: ClassBlocked,
			RiskScore:      100,
			Description:    "pre-sandbox process execution, permanently disabled",
		},
	}
}

// DefaultAliases maps historical command names still emitted by older UI
// builds onto their canonical profiles.
func DefaultAliases() map[string]string {
	return map[string]string{
		"settings.save":   "save_settings",
		"settings.load":   "load_settings",
		"execute_command": "run_command",
		"fs.read_file":    "read_file",
		"fs.write_file":   "write_file",
		"container.start": "container_start",
		"container.stop":  "container_stop",
		"eval":            "debug_eval",
	}
}

// DefaultHierarchy is the built-in permission inheritance map. Holding a
// permission on the left transitively grants everything on the right.
func DefaultHierarchy() map[string][]string {
	return map[string][]string{
		"admin": {
			"power_user",
			"system.execute",
			"app.update",
			"extension.install",
			"fs.delete",
			"logs.export",
		},
		"power_user": {
			"user",
			"project.create",
			"container.manage",
			"fs.write",
			"cache.clear",
		},
		"user": {
			"settings.read",
			"settings.write",
			"project.open",
			"fs.read",
		},
	}
}

// DefaultGlobalBlockedPatterns are scanned against every request's command
// name plus serialized arguments, independent of per-profile patterns.
func DefaultGlobalBlockedPatterns() []string {
	return []string{
		`(?i)<\s*script`,
		`(?i)javascript\s*:`,
		`\.\./\.\./`,
		`(?i)rm\s+-rf\s+/`,
		`(?i)drop\s+table`,
		`(?i)/etc/(passwd|shadow|sudoers)`,
		`\\x00|\x00`,
	}
}

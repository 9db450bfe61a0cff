package features

import (
	"net/url"
	"strings"

	"github.com/axonhq/axon/internal/model"
)

var sqlPatterns = []string{
	"union",
	"select",
	"insert into",
	"delete from",
	"drop ",
	"drop%20",
	"update ",
	"--",
	"/*",
	"*/",
	"';",
	"' or ",
	"' or '",
	"'1'='1",
	"or 1=1",
	"1=1",
	"%27%20or",
	"or%201%3d1",
	"xp_cmdshell",
	"exec(",
	"sleep(",
	"benchmark(",
	"waitfor delay",
	"information_schema",
}

var traversalPatterns = []string{
	"../",
	"..\\",
	"%2e%2e",
	"..%2f",
	"..%5c",
	"%252e%252e",
	"/etc/passwd",
	"/etc/shadow",
	"/proc/self",
	"c:\\",
	"c:/",
	"d:\\",
	"d:/",
	"\\windows\\",
	"/windows/system32",
	"boot.ini",
}

var sensitiveFiles = []string{
	".env",
	".git",
	".svn",
	".hg",
	".htaccess",
	".htpasswd",
	".ds_store",
	".aws",
	".ssh",
	"id_rsa",
	"credentials",
	"wp-config",
	"config.php",
	"web.config",
	"docker-compose",
	".npmrc",
	".pgpass",
	".bak",
	"backup",
	".sql",
}

// Exploit categories, in report order.
const (
	CategoryWordPress   = "wordpress"
	CategoryPHP         = "php_exploits"
	CategoryAdminScans  = "admin_scans"
	CategoryShellAccess = "shell_access"
	CategoryInjection   = "injection"
)

type exploitCategory struct {
	name     string
	patterns []string
}

var exploitCategories = []exploitCategory{
	{CategoryWordPress, []string{"wp-admin", "wp-login", "wp-content", "wp-includes", "wp-json", "xmlrpc.php", "wordpress"}},
	{CategoryPHP, []string{".php", "phpinfo", "phpmyadmin", "php://", "eval(", "base64_decode", "allow_url_include"}},
	{CategoryAdminScans, []string{"admin", "login", "signin", "manager/html", "cpanel", "webadmin"}},
	{CategoryShellAccess, []string{"shell", "cmd", "cgi-bin", "/bin/sh", "/bin/bash", "exec", "passthru", "system(", "powershell"}},
	{CategoryInjection, []string{"<script", "%3cscript", "javascript:", "onerror=", "onload=", "alert(", "document.cookie", "<iframe", "<svg"}},
}

// SQLInjection is the result of scanning a path for SQL injection markers.
type SQLInjection struct {
	HasPattern bool            `json:"has_sql_pattern"`
	Count      int             `json:"sql_pattern_count"`
	Risk       model.RiskLevel `json:"risk_level"`
}

// PathTraversal is the result of scanning a path for directory traversal.
type PathTraversal struct {
	HasTraversal bool            `json:"has_traversal"`
	Count        int             `json:"traversal_count"`
	Risk         model.RiskLevel `json:"risk_level"`
}

// SensitiveFiles lists credential, config and VCS artifacts a path touches.
type SensitiveFiles struct {
	AccessesSensitive bool            `json:"accesses_sensitive"`
	Files             []string        `json:"sensitive_files"`
	Count             int             `json:"count"`
	Risk              model.RiskLevel `json:"risk_level"`
}

// CommonExploits maps exploit categories to the number of matched markers.
// Categories without matches are omitted.
type CommonExploits struct {
	HasExploits bool            `json:"has_exploits"`
	Categories  map[string]int  `json:"exploit_categories"`
	Total       int             `json:"total_patterns"`
	Risk        model.RiskLevel `json:"risk_level"`
}

// DetectSQLInjection counts SQL keywords and syntax fragments in path.
// Three or more distinct matches is high risk.
func DetectSQLInjection(path string) SQLInjection {
	n := countMatches(scanForms(path), sqlPatterns)
	return SQLInjection{
		HasPattern: n > 0,
		Count:      n,
		Risk:       riskFor(n, 3),
	}
}

// DetectPathTraversal counts traversal markers and absolute system paths.
// Two or more distinct matches is high risk.
func DetectPathTraversal(path string) PathTraversal {
	n := countMatches(scanForms(path), traversalPatterns)
	return PathTraversal{
		HasTraversal: n > 0,
		Count:        n,
		Risk:         riskFor(n, 2),
	}
}

// DetectSensitiveFiles reports which sensitive artifact names appear in path.
func DetectSensitiveFiles(path string) SensitiveFiles {
	forms := scanForms(path)
	found := make([]string, 0)
	for _, name := range sensitiveFiles {
		if containsAny(forms, name) {
			found = append(found, name)
		}
	}
	return SensitiveFiles{
		AccessesSensitive: len(found) > 0,
		Files:             found,
		Count:             len(found),
		Risk:              riskFor(len(found), 2),
	}
}

// DetectCommonExploits matches path against the scanner and exploit
// categories. Three or more matches across all categories is high risk.
func DetectCommonExploits(path string) CommonExploits {
	forms := scanForms(path)
	res := CommonExploits{Categories: make(map[string]int)}
	for _, cat := range exploitCategories {
		if n := countMatches(forms, cat.patterns); n > 0 {
			res.Categories[cat.name] = n
			res.Total += n
		}
	}
	res.HasExploits = res.Total > 0
	res.Risk = riskFor(res.Total, 3)
	return res
}

// scanForms returns the lowercased target followed by its percent-decoded
// form when decoding changes anything. A part that fails to decode is kept
// raw.
func scanForms(target string) []string {
	raw := strings.ToLower(target)
	if raw == "" {
		return nil
	}
	decoded := strings.ToLower(decodeTarget(raw))
	if decoded == raw {
		return []string{raw}
	}
	return []string{raw, decoded}
}

func decodeTarget(target string) string {
	path, query, hasQuery := strings.Cut(target, "?")
	if p, err := url.PathUnescape(path); err == nil {
		path = p
	}
	if !hasQuery {
		return path
	}
	if q, err := url.QueryUnescape(query); err == nil {
		query = q
	}
	return path + "?" + query
}

// countMatches returns how many patterns occur at least once in any of forms.
// A pattern found in several forms counts once.
func countMatches(forms []string, patterns []string) int {
	n := 0
	for _, p := range patterns {
		if containsAny(forms, p) {
			n++
		}
	}
	return n
}

func containsAny(forms []string, pattern string) bool {
	for _, s := range forms {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}

func riskFor(count, highAt int) model.RiskLevel {
	switch {
	case count >= highAt:
		return model.RiskHigh
	case count >= 1:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

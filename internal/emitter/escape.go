package emitter

import "strings"

// tagEscaper escapes a value for use inside a TAG clause @f:{...}.
var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

// textEscaper escapes free text for a TEXT clause @f:(...). Unlike TAG
// values, spaces stay unescaped so the backend tokenizes multi-word input.
var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
)

// fieldEscaper escapes record field names used in attribute position. Field
// names come from untrusted query documents, so they get the full TAG
// treatment.
var fieldEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

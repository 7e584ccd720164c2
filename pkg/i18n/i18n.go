// Package i18n holds the static message tables and the active interface language.
package i18n

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Prefix placeholder used by templates that mention commands.
const prefixToken = "{prefix}"

var tables = map[string]map[string]string{
	"ru": {
		"uptime":   "Аптайм",
		"user":     "Юзер",
		"cpu":      "Процессор",
		"ram":      "Оперативка",
		"host":     "Хост",
		"commands": "Команды",
		"help_text": `**selfbot - команды:**

` + "`{prefix}help`" + ` - Показать команды
` + "`{prefix}info`" + ` - Информация о системе
` + "`{prefix}ping`" + ` - Проверить пинг
` + "`{prefix}ipinfo <ip>`" + ` - Информация об IP
` + "`{prefix}lm`" + ` - Загрузить модуль (реплай на .go файл)
` + "`{prefix}ulm <имя>`" + ` - Выгрузить модуль
` + "`{prefix}modules`" + ` - Список модулей
` + "`{prefix}logs`" + ` - Показать логи
` + "`{prefix}setlang <ru/en>`" + ` - Сменить язык
` + "`{prefix}restart`" + ` - Перезагрузка
` + "`{prefix}stop`" + ` - Остановка
` + "`{prefix}backup`" + ` - Создать бэкап
` + "`{prefix}clean`" + ` - Очистить временные файлы`,
		"module_loading":     "⏳ Загрузка модуля %s...",
		"module_loaded":      "✅ Модуль %s загружен",
		"module_load_failed": "❌ Ошибка загрузки %s",
		"module_unloaded":    "✅ Модуль %s выгружен",
		"module_not_found":   "❌ Модуль %s не найден",
		"lang_changed":       "🌍 Язык изменен на %s",
		"restarting":         "🔄 Перезагрузка...",
		"stopping":           "🛑 Остановка...",
		"no_modules":         "📦 Нет загруженных модулей",
		"modules_list":       "📚 **Загруженные модули:**",
		"backup_created":     "💾 Бэкап создан: %s",
		"backup_error":       "❌ Ошибка создания бэкапа: %s",
		"temp_cleaned":       "🧹 Очищено временных файлов: %d",
		"clean_error":        "❌ Ошибка очистки: %s",
		"logs_empty":         "🪵 Логов не найдено",
		"logs_title":         "📜 Последние логи:",
		"logs_error":         "❌ Ошибка чтения логов: %s",
		"ping_progress":      "⚡️Пинг...",
		"ping_result":        "⚡️Пинг: %sмс\n🌿 Бот активен",
		"ipinfo_result": `🔍 Информация о %s:
🌍 Страна: %s
🏙 Город: %s
📱 Провайдер: %s
📡 Организация: %s
📍 Координаты: %s, %s
⏰ Часовой пояс: %s`,
		"ipinfo_error":   "❌ Ошибка запроса IP: %s",
		"file_not_found": "❌ Файл не найден",
		"not_reply":      "❌ Это не ответ на сообщение",
		"not_go_file":    "❌ Файл должен быть .go",
		"command_failed": "❌ Ошибка: %s",
	},
	"en": {
		"uptime":   "Uptime",
		"user":     "User",
		"cpu":      "CPU",
		"ram":      "RAM",
		"host":     "Host",
		"commands": "Commands",
		"help_text": `**selfbot - commands:**

` + "`{prefix}help`" + ` - Show commands
` + "`{prefix}info`" + ` - System information
` + "`{prefix}ping`" + ` - Check latency
` + "`{prefix}ipinfo <ip>`" + ` - Look up an IP address
` + "`{prefix}lm`" + ` - Load a module (reply to a .go file)
` + "`{prefix}ulm <name>`" + ` - Unload a module
` + "`{prefix}modules`" + ` - List modules
` + "`{prefix}logs`" + ` - Show logs
` + "`{prefix}setlang <ru/en>`" + ` - Change language
` + "`{prefix}restart`" + ` - Restart
` + "`{prefix}stop`" + ` - Stop
` + "`{prefix}backup`" + ` - Create a backup
` + "`{prefix}clean`" + ` - Clean temporary files`,
		"module_loading":     "⏳ Loading module %s...",
		"module_loaded":      "✅ Module %s loaded",
		"module_load_failed": "❌ Failed to load %s",
		"module_unloaded":    "✅ Module %s unloaded",
		"module_not_found":   "❌ Module %s not found",
		"lang_changed":       "🌍 Language changed to %s",
		"restarting":         "🔄 Restarting...",
		"stopping":           "🛑 Stopping...",
		"no_modules":         "📦 No modules loaded",
		"modules_list":       "📚 **Loaded modules:**",
		"backup_created":     "💾 Backup created: %s",
		"backup_error":       "❌ Backup failed: %s",
		"temp_cleaned":       "🧹 Temporary files removed: %d",
		"clean_error":        "❌ Clean failed: %s",
		"logs_empty":         "🪵 No logs found",
		"logs_title":         "📜 Recent logs:",
		"logs_error":         "❌ Failed to read logs: %s",
		"ping_progress":      "⚡️Ping...",
		"ping_result":        "⚡️Ping: %sms\n🌿 Bot is alive",
		"ipinfo_result": `🔍 Information about %s:
🌍 Country: %s
🏙 City: %s
📱 ISP: %s
📡 Organization: %s
📍 Coordinates: %s, %s
⏰ Timezone: %s`,
		"ipinfo_error":   "❌ IP lookup failed: %s",
		"file_not_found": "❌ File not found",
		"not_reply":      "❌ This is not a reply",
		"not_go_file":    "❌ The file must be a .go file",
		"command_failed": "❌ Error: %s",
	},
}

// Translator resolves message keys through the active language.
// It is safe for concurrent use; SetLanguage may race with Text calls.
type Translator struct {
	lang   atomic.Value
	prefix string
}

// New returns a translator for lang. Unknown languages fall back to ru.
func New(lang string, prefix string) *Translator {
	t := &Translator{prefix: prefix}
	if !t.SetLanguage(lang) {
		t.lang.Store("ru")
	}
	return t
}

// Languages returns the codes with a message table.
func Languages() []string {
	return []string{"ru", "en"}
}

// Language returns the active language code.
func (t *Translator) Language() string {
	return t.lang.Load().(string)
}

// SetLanguage switches the active language and reports whether it is known.
func (t *Translator) SetLanguage(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := tables[lang]; !ok {
		return false
	}
	t.lang.Store(lang)
	return true
}

// Text returns the template for key, or key itself when the table has no entry.
func (t *Translator) Text(key string) string {
	value, ok := tables[t.Language()][key]
	if !ok {
		return key
	}
	if t.prefix != "" {
		value = strings.ReplaceAll(value, prefixToken, t.prefix)
	}
	return value
}

// Format renders the template for key with args.
func (t *Translator) Format(key string, args ...any) string {
	return fmt.Sprintf(t.Text(key), args...)
}

// Lookup returns the raw template for lang and key.
func Lookup(lang string, key string) (string, bool) {
	value, ok := tables[lang][key]
	return value, ok
}

// Keys returns every key defined for lang.
func Keys(lang string) []string {
	table := tables[lang]
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	return keys
}

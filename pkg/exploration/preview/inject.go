package preview

import "strings"

// ErrorMessageType is the postMessage type sent by the injected catcher.
const ErrorMessageType = "preview-runtime-error"

const errorCatcher = `<script>
(function () {
  var errors = [];
  window.onerror = function (message, source, line, col, err) {
    if (errors.length >= 5) return false;
    errors.push({message: String(message), line: line || 0, col: col || 0, stack: err && err.stack ? String(err.stack) : ""});
    try { window.parent.postMessage({type: 'preview-runtime-error', errors: errors}, '*'); } catch (e) {}
    return false;
  };
})();
</script>`

// InjectErrorCatcher inserts the runtime error reporter right after the head
// tag, or at the top of the document when there is none.
func InjectErrorCatcher(html string) string {
	for _, tag := range []string{"<head>", "<HEAD>"} {
		if i := strings.Index(html, tag); i >= 0 {
			at := i + len(tag)
			return html[:at] + errorCatcher + html[at:]
		}
	}
	return errorCatcher + html
}

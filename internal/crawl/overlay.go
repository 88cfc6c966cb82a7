package crawl

import (
	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

// dismissOverlaysJS is the page-script boundary for consent/overlay UI:
// click anything that looks like an accept/close control, then hard-remove
// residual fixed-position banners. Kept as one serialized script so the
// heuristics live in exactly one place.
const dismissOverlaysJS = `() => {
	const clickTexts = ['accept', 'accept all', 'agree', 'i agree', 'got it', 'ok', 'allow all', 'close', 'dismiss'];
	const selectors = [
		'#onetrust-accept-btn-handler',
		'.cc-accept', '.cc-dismiss', '.cc-allow',
		'[aria-label="Accept cookies"]', '[aria-label="accept cookies"]',
		'[id*="cookie"] button', '[class*="cookie"] button',
		'[class*="consent"] button', '[id*="consent"] button',
	];
	let clicked = 0;

	for (const sel of selectors) {
		try {
			for (const el of document.querySelectorAll(sel)) {
				const text = (el.textContent || '').trim().toLowerCase();
				if (clickTexts.some(t => text === t || text.startsWith(t))) {
					el.click();
					clicked++;
				}
			}
		} catch (e) { /* selector not supported, keep going */ }
	}

	let removed = 0;
	for (const el of document.querySelectorAll('div, section, aside')) {
		const style = window.getComputedStyle(el);
		if ((style.position === 'fixed' || style.position === 'sticky') && parseInt(style.zIndex || '0', 10) > 999) {
			const text = (el.textContent || '').toLowerCase();
			if (text.includes('cookie') || text.includes('consent') || text.includes('privacy')) {
				el.remove();
				removed++;
			}
		}
	}

	return clicked + removed;
}`

// dismissOverlays runs the consent heuristics. Failures are logged and
// ignored; an overlay we cannot kill only degrades extraction quality.
func dismissOverlays(page *rod.Page) {
	if _, err := page.Eval(dismissOverlaysJS); err != nil {
		zap.L().Debug("crawl: overlay dismissal failed", zap.Error(err))
	}
}

// pkg/browser/injected.go
// The JavaScript half of the engine. Every snippet is a self-contained
// function declaration evaluated per call; nothing is installed into the page
// globally, so navigations cannot leave stale state behind.
package browser

// jsQueryAllSnippet is the shared selector evaluation, spliced into the
// document-scope functions below. The text engine matches
// whitespace-normalized, case-insensitive substrings and keeps only the
// deepest matching elements.
const jsQueryAllSnippet = `
	const queryAll = (engine, body) => {
		if (engine === 'xpath') {
			const out = [];
			const it = document.evaluate(body, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			for (let i = 0; i < it.snapshotLength; i++) {
				const n = it.snapshotItem(i);
				if (n.nodeType === Node.ELEMENT_NODE) out.push(n);
			}
			return out;
		}
		if (engine === 'text') {
			const norm = (s) => (s || '').replace(/\s+/g, ' ').trim().toLowerCase();
			const needle = norm(body);
			const matches = Array.from(document.querySelectorAll('*'))
				.filter((e) => norm(e.textContent).includes(needle));
			return matches.filter((e) => !matches.some((o) => o !== e && e.contains(o)));
		}
		return Array.from(document.querySelectorAll(body));
	};
`

// jsResolveOne resolves a single element. A null nth means strict
// single-target resolution: more than one match throws a strictMarker error,
// zero matches return null. nth of -1 picks the last match; nth >= 0 picks by
// index, null when out of range.
const jsResolveOne = `function(engine, body, nth) {` + jsQueryAllSnippet + `
	const els = queryAll(engine, body);
	if (nth === null || nth === undefined) {
		if (els.length === 0) return null;
		if (els.length > 1) throw new Error('` + strictMarker + `' + els.length);
		return els[0];
	}
	if (nth === -1) return els.length > 0 ? els[els.length - 1] : null;
	return nth < els.length ? els[nth] : null;
}`

// jsCountMatches counts matching elements, by value.
const jsCountMatches = `function(engine, body) {` + jsQueryAllSnippet + `
	return queryAll(engine, body).length;
}`

// jsStateSnapshot reads the element's actionability-relevant states in one
// pass. Stability compares the bounding rect across two consecutive animation
// frames, so the call spans at least two frames.
const jsStateSnapshot = `async function() {
	const node = this;
	if (!node.isConnected) return { attached: false };

	const style = window.getComputedStyle(node);
	const rects = node.getClientRects();
	const rect = node.getBoundingClientRect();
	const visible = style.visibility !== 'hidden' && style.display !== 'none' &&
		rects.length > 0 && rect.width > 0 && rect.height > 0;

	const raf = () => new Promise((r) => requestAnimationFrame(r));
	const before = node.getBoundingClientRect();
	await raf();
	await raf();
	if (!node.isConnected) return { attached: false };
	const after = node.getBoundingClientRect();
	const stable = before.x === after.x && before.y === after.y &&
		before.width === after.width && before.height === after.height;

	const disabled = node.disabled === true ||
		node.hasAttribute('disabled') ||
		node.getAttribute('aria-disabled') === 'true' ||
		!!(node.closest && node.closest('fieldset[disabled]'));

	const tag = node.nodeName.toUpperCase();
	const textControl = (tag === 'INPUT' || tag === 'TEXTAREA' || tag === 'SELECT');
	const editable = !disabled && !node.readOnly &&
		(textControl || node.isContentEditable === true);

	return { attached: true, visible, stable, enabled: !disabled, editable };
}`

// jsHitTest checks that the element (or a descendant, or its label) is what
// actually receives a pointer event at viewport point (x, y).
const jsHitTest = `function(x, y) {
	const node = this;
	const hit = document.elementFromPoint(x, y);
	if (!hit) return false;
	for (let e = hit; e; e = e.parentElement) {
		if (e === node) return true;
	}
	if (node.contains(hit)) return true;
	const label = hit.closest ? hit.closest('label') : null;
	if (label && (label.control === node || label.contains(node))) return true;
	return false;
}`

// jsFill sets a text control's value the way real input does: focus, assign
// through the native setter so framework listeners fire, then one input and
// one change event. Returns '' on success or a failure code.
const jsFill = `function(value) {
	const node = this;
	const tag = node.nodeName.toUpperCase();

	if (node.isContentEditable) {
		node.focus();
		document.execCommand('selectAll', false, '');
		document.execCommand('insertText', false, value);
		return '';
	}
	if (tag !== 'INPUT' && tag !== 'TEXTAREA') return 'notfillable';

	if (tag === 'INPUT') {
		const type = (node.getAttribute('type') || 'text').toLowerCase();
		const textual = ['', 'text', 'search', 'url', 'tel', 'password', 'email',
			'number', 'date', 'time', 'datetime-local', 'month', 'week', 'color', 'range'];
		if (!textual.includes(type)) return 'notfillable';
	}
	if (node.disabled || node.readOnly) return 'noteditable';

	node.focus();
	const proto = tag === 'INPUT' ? window.HTMLInputElement.prototype : window.HTMLTextAreaElement.prototype;
	const setter = Object.getOwnPropertyDescriptor(proto, 'value').set;
	setter.call(node, value);
	node.dispatchEvent(new Event('input', { bubbles: true }));
	node.dispatchEvent(new Event('change', { bubbles: true }));
	return '';
}`

// jsSelectOptions applies the matching criteria to a <select>, returning the
// values actually selected. Criteria are {value}|{label}|{index} objects; an
// option matches if any criterion accepts it.
const jsSelectOptions = `function(criteria) {
	const node = this;
	if (node.nodeName.toUpperCase() !== 'SELECT') return { error: 'notselect' };

	const options = Array.from(node.options);
	const matches = (opt, idx) => criteria.some((c) => {
		if (c.value !== undefined && c.value !== null) return opt.value === c.value;
		if (c.label !== undefined && c.label !== null) return opt.label.trim() === c.label;
		if (c.index !== undefined && c.index !== null) return idx === c.index;
		return false;
	});

	const selected = [];
	for (let i = 0; i < options.length; i++) {
		const hit = matches(options[i], i);
		if (node.multiple) {
			options[i].selected = hit;
			if (hit) selected.push(options[i].value);
		} else if (hit && selected.length === 0) {
			node.value = options[i].value;
			selected.push(options[i].value);
		}
	}
	node.dispatchEvent(new Event('input', { bubbles: true }));
	node.dispatchEvent(new Event('change', { bubbles: true }));
	return { values: selected };
}`

// jsCheckedState reads whether the element is a checkable control and its
// current checked state.
const jsCheckedState = `function() {
	const node = this;
	const tag = node.nodeName.toUpperCase();
	const type = (node.getAttribute('type') || '').toLowerCase();
	const checkable = (tag === 'INPUT' && (type === 'checkbox' || type === 'radio')) ||
		node.getAttribute('role') === 'checkbox';
	if (!checkable) return { checkable: false, checked: false };
	const checked = tag === 'INPUT' ? node.checked : node.getAttribute('aria-checked') === 'true';
	return { checkable: true, checked };
}`

// jsSelectText selects the full text range of a text control or element.
const jsSelectText = `function() {
	const node = this;
	const tag = node.nodeName.toUpperCase();
	if (tag === 'INPUT' || tag === 'TEXTAREA') {
		if (node.disabled || node.readOnly) return 'noteditable';
		node.focus();
		node.select();
		return '';
	}
	const range = document.createRange();
	range.selectNodeContents(node);
	const selection = window.getSelection();
	selection.removeAllRanges();
	selection.addRange(range);
	return '';
}`

// jsDispatchEvent synthesizes and dispatches an event of the right class for
// its type, with eventInit merged in.
const jsDispatchEvent = `function(type, init) {
	const node = this;
	init = Object.assign({ bubbles: true, cancelable: true, composed: true }, init || {});
	let event;
	if (/^(click|dblclick|mousedown|mouseup|mousemove|mouseover|mouseout|mouseenter|mouseleave|contextmenu)$/.test(type)) {
		event = new MouseEvent(type, init);
	} else if (/^(keydown|keyup|keypress)$/.test(type)) {
		event = new KeyboardEvent(type, init);
	} else if (/^(touchstart|touchend|touchmove|touchcancel)$/.test(type)) {
		event = new Event(type, init);
	} else if (/^(focus|blur|focusin|focusout)$/.test(type)) {
		event = new FocusEvent(type, init);
	} else if (/^(input|beforeinput)$/.test(type)) {
		event = new InputEvent(type, init);
	} else if (/^drag/.test(type) || type === 'drop') {
		event = new Event(type, init);
	} else if (/^(wheel)$/.test(type)) {
		event = new WheelEvent(type, init);
	} else {
		event = new CustomEvent(type, Object.assign(init, { detail: init.detail }));
	}
	node.dispatchEvent(event);
	return '';
}`

// jsInputValue reads the value of a text control.
const jsInputValue = `function() {
	const node = this;
	const tag = node.nodeName.toUpperCase();
	if (tag !== 'INPUT' && tag !== 'TEXTAREA' && tag !== 'SELECT') return { error: 'notinput' };
	return { value: node.value };
}`

// Small property readers.
const (
	jsInnerText    = `function() { return this.innerText; }`
	jsInnerHTML    = `function() { return this.innerHTML; }`
	jsTextContent  = `function() { return this.textContent; }`
	jsGetAttribute = `function(name) { return this.getAttribute(name); }`
	jsIsConnected  = `function() { return this.isConnected; }`
	jsTapSupported = `function() { return 'ontouchstart' in window || navigator.maxTouchPoints > 0; }`
)

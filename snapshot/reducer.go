package snapshot

// styleReducer runs inside the page. It serialises computed styles for the
// elements matching a selector; JSON keeps the CDP payload to a single string.
const styleReducer = `(selector, limit) => {
	let els = Array.from(document.querySelectorAll(selector));
	if (limit > 0) els = els.slice(0, limit);
	return JSON.stringify(els.map(el => {
		const s = window.getComputedStyle(el);
		return {
			tag: el.tagName.toLowerCase(),
			fontFamily: s.fontFamily || '',
			fontSize: s.fontSize || '',
			fontWeight: s.fontWeight || '',
			color: s.color || '',
			backgroundColor: s.backgroundColor || '',
			display: s.display || ''
		};
	}));
}`

const titleScript = `() => document.title || ''`

package points

// watcherScript installs a MutationObserver on the points counter plus an
// in-page poll, reporting value transitions through the exposed push
// callback. Guarded so repeated evaluation after reloads installs only once.
// The selector list is passed in as the evaluation argument.
const watcherScript = `
(selectors) => {
  if (window.__pointsWatcherInstalled) return;
  window.__pointsWatcherInstalled = true;
  const pick = () => {
    for (const s of selectors) {
      const el = document.querySelector(s);
      if (el) return el;
    }
    return null;
  };
  const parse = el => {
    if (!el) return null;
    const raw = el.textContent || '';
    const n = parseInt(raw.replace(/\D/g, ''), 10);
    return Number.isFinite(n) ? n : null;
  };
  const notify = v => { try { window.` + pushFunction + ` && window.` + pushFunction + `(v); } catch (e) {} };
  let observedEl = null;
  let lastVal = null;
  let obs = null;
  const attach = () => {
    const el = pick();
    if (!el || el === observedEl) return;
    if (obs && observedEl) { try { obs.disconnect(); } catch (_) {} }
    observedEl = el;
    const sendNow = () => {
      const v = parse(observedEl);
      if (v != null && v !== lastVal) { lastVal = v; notify(v); }
    };
    obs = new MutationObserver(sendNow);
    obs.observe(observedEl, { childList: true, characterData: true, subtree: true });
    sendNow();
  };
  const rootObs = new MutationObserver(attach);
  rootObs.observe(document.documentElement, { childList: true, subtree: true });
  const poll = () => {
    attach();
    if (observedEl) {
      const v = parse(observedEl);
      if (v != null && v !== lastVal) { lastVal = v; notify(v); }
    }
  };
  setInterval(poll, 1000);
  attach();
  poll();
}
`

// pushFunction is the name of the Go callback exposed to the page.
const pushFunction = "goPointsUpdate"

package frontend

// appCSS is the single stylesheet served at /static/app.css.
const appCSS = `:root { --bg: #f5f8fa; --fg: #16323d; --accent: #0a7ea4; --card: #ffffff; }
html[data-theme="dark"] { --bg: #12181c; --fg: #e4ecef; --accent: #4fb3d9; --card: #1c262c; }
body { margin: 0; font-family: system-ui, sans-serif; background: var(--bg); color: var(--fg); }
.tabs { display: flex; gap: 0.5rem; padding: 0.5rem 1rem; background: var(--card); }
.tabs .tab { color: var(--fg); text-decoration: none; padding: 0.4rem 0.6rem; border-radius: 0.4rem; }
.tabs .tab.active { background: var(--accent); color: #fff; }
.badge { background: #d33; color: #fff; border-radius: 1rem; padding: 0 0.4rem; font-size: 0.75rem; }
.content { max-width: 40rem; margin: 0 auto; padding: 1rem; }
.flash { background: var(--accent); color: #fff; padding: 0.5rem 1rem; }
.stats { display: flex; gap: 1rem; }
.stat { background: var(--card); border-radius: 0.5rem; padding: 1rem; text-align: center; flex: 1; }
.stat .value { display: block; font-size: 1.6rem; font-weight: 700; }
.quick-actions { display: grid; grid-template-columns: 1fr 1fr; gap: 0.5rem; margin-top: 1rem; }
.quick-actions .action { background: var(--card); padding: 1rem; border-radius: 0.5rem; text-align: center; color: var(--fg); text-decoration: none; }
form label { display: block; margin: 0.5rem 0; }
form input, form select, form textarea { width: 100%; padding: 0.4rem; box-sizing: border-box; }
form label.check input { width: auto; margin-right: 0.4rem; }
button { background: var(--accent); color: #fff; border: 0; border-radius: 0.4rem; padding: 0.5rem 1rem; margin-top: 0.5rem; }
button[disabled] { opacity: 0.4; }
.chips { display: flex; gap: 0.4rem; margin: 0.5rem 0; }
.chip { border: 1px solid var(--accent); border-radius: 1rem; padding: 0.2rem 0.7rem; color: var(--fg); text-decoration: none; }
.chip.active { background: var(--accent); color: #fff; }
ul.alerts, ul.history, ul.modules { list-style: none; padding: 0; }
ul.alerts li, ul.history li, ul.modules li { background: var(--card); border-radius: 0.5rem; padding: 0.7rem; margin: 0.4rem 0; }
.alert.unread { border-left: 4px solid var(--accent); }
.alert.emergency { border-left-color: #d33; }
dialog.sensor { border: 0; border-radius: 0.5rem; padding: 1rem; background: var(--card); color: var(--fg); }
.avatar { width: 6rem; height: 6rem; border-radius: 50%; object-fit: cover; }
time { color: #888; font-size: 0.85rem; }
`

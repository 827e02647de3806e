package capture

import "encoding/json"

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func buildIIFE(body string) string {
	return `(function(){
try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_message:String(err && err.message || err)});
}
})()`
}

func wrapJSEval(body string) string { return buildIIFE(body) }

// jsFindNode resolves q to a node expression, null when absent.
func jsFindNode(q Query) string {
	if q.XPath {
		return `document.evaluate(` + jsString(q.Expr) + `, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`
	}
	return `document.querySelector(` + jsString(q.Expr) + `)`
}

const jsStabilizeRendering = `(function(){
var style = document.createElement('style');
style.setAttribute('data-heatmap-capture', '1');
style.textContent = '*, *::before, *::after { transition: none !important; animation: none !important; }' +
  ' .echarts-for-react { width: 100% !important; height: 100% !important; }' +
  ' canvas { image-rendering: -webkit-optimize-contrast; image-rendering: crisp-edges; }';
document.head.appendChild(style);
try { Object.defineProperty(window, 'devicePixelRatio', { get: function(){ return 2; }, configurable: true }); } catch (_) { window.devicePixelRatio = 2; }
return true;
})()`

// jsRenderFingerprint summarizes the chart canvases so consecutive samples
// can be compared for stability. mounted is false until the container holds
// at least one canvas.
func jsRenderFingerprint(chartCSS string) string {
	return wrapJSEval(`
var root = document.querySelector(` + jsString(chartCSS) + `);
var parts = [document.readyState];
var canvases = root ? root.querySelectorAll('canvas') : [];
parts.push(String(canvases.length));
for (var i = 0; i < canvases.length; i++) {
  parts.push(canvases[i].width + 'x' + canvases[i].height);
}
if (root) { parts.push(String(root.getElementsByTagName('*').length)); }
return JSON.stringify({ok:true,data:{mounted:canvases.length > 0,sig:parts.join('|')}});`)
}

// jsSetInputValue writes the value through the native setter so framework
// state sees the change, calls the React onChange prop when the element
// carries one, fires the events the widget listens to and blurs after 500ms.
func jsSetInputValue(inputCSS, value string) string {
	return wrapJSEval(`
var input = document.querySelector(` + jsString(inputCSS) + `);
if (!input) { return JSON.stringify({ok:true,data:{found:false,value:"",handler:false}}); }
var setter = Object.getOwnPropertyDescriptor(HTMLInputElement.prototype, 'value').set;
input.focus();
input.dispatchEvent(new Event('focus', {bubbles:true}));
setter.call(input, ` + jsString(value) + `);
var handler = false;
var propsKey = Object.keys(input).find(function(k){ return k.indexOf('__reactProps$') === 0 || k.indexOf('__reactEventHandlers$') === 0; });
var props = propsKey ? input[propsKey] : null;
if (props && typeof props.onChange === 'function') {
  props.onChange({target: input, currentTarget: input, type: 'change', persist: function(){}, preventDefault: function(){}, stopPropagation: function(){}});
  handler = true;
}
input.dispatchEvent(new Event('input', {bubbles:true}));
input.dispatchEvent(new Event('change', {bubbles:true}));
setTimeout(function(){ input.blur(); input.dispatchEvent(new Event('blur', {bubbles:true})); }, 500);
return JSON.stringify({ok:true,data:{found:true,value:input.value,handler:handler}});`)
}

func jsReadInputValue(inputCSS string) string {
	return wrapJSEval(`
var input = document.querySelector(` + jsString(inputCSS) + `);
if (!input) { return JSON.stringify({ok:true,data:{found:false,value:""}}); }
return JSON.stringify({ok:true,data:{found:true,value:input.value}});`)
}

func jsReadText(css string) string {
	return wrapJSEval(`
var el = document.querySelector(` + jsString(css) + `);
if (!el) { return JSON.stringify({ok:true,data:{found:false,text:""}}); }
return JSON.stringify({ok:true,data:{found:true,text:(el.textContent || '').trim()}});`)
}

// jsClickOptionContaining clicks the first option whose text contains label.
func jsClickOptionContaining(optionCSS, label string) string {
	return wrapJSEval(`
var opts = document.querySelectorAll(` + jsString(optionCSS) + `);
for (var i = 0; i < opts.length; i++) {
  var text = (opts[i].textContent || '').trim();
  if (text.indexOf(` + jsString(label) + `) !== -1) {
    opts[i].click();
    return JSON.stringify({ok:true,data:{clicked:true,text:text}});
  }
}
return JSON.stringify({ok:true,data:{clicked:false,text:"",count:opts.length}});`)
}

func jsBoundingBox(q Query) string {
	return wrapJSEval(`
var el = ` + jsFindNode(q) + `;
if (!el) { return JSON.stringify({ok:true,data:{found:false}}); }
var r = el.getBoundingClientRect();
return JSON.stringify({ok:true,data:{found:true,x:r.left + window.scrollX,y:r.top + window.scrollY,width:r.width,height:r.height}});`)
}

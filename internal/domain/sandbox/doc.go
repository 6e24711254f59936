// Package sandbox hosts one instantiation of the simulated framework for one
// platform version.
//
// Each Environment owns a private goja VM into which the framework bundle is
// loaded, so framework statics are never shared between environments. Calls
// into instrumented classes are routed through the environment's dispatch
// Runtime; calls into other classes run the bundle's code directly.
//
// Framework bundles are plain JavaScript (optionally gzip-compressed):
//
//	defineClass("android.os.Build", {
//	    statics: { RADIO: "unknown" },
//	    methods: {
//	        "getRadioVersion()": function () { return statics("android.os.Build").RADIO; },
//	    },
//	});
//	defineResources({ "string/ok": "OK" });
//
// Framework code reaches other members through invoke(class, member, ...args)
// or framework[class][member](...args); both are intercepted like calls from Go.
//
// Static state is reset to a named checklist (see Checklist) rather than by
// rebuilding the VM.
package sandbox

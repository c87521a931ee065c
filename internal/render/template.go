package render

// headerTemplate opens every generated file: library directive, imports and
// the runtime shared by all converters. The RustBuffer operations go
// through rustCall, so they are gated by the initialization check like any
// other call.
const headerTemplate = `// This file was autogenerated by uniffi-bindgen-dart. Do not edit.
// ignore_for_file: unused_element, unused_field, non_constant_identifier_names, constant_identifier_names

library {{.PackageName}};
{{range .Imports}}
import '{{.}}';
{{- end}}
{{- range .Externals}}
import '{{.Path}}' show {{join .Show ", "}};
{{- end}}

class UniffiInternalError implements Exception {
  static const int bufferOverflow = 0;
  static const int incompleteData = 1;
  static const int unexpectedOptionalTag = 2;
  static const int unexpectedEnumCase = 3;
  static const int unexpectedNullPointer = 4;
  static const int unexpectedRustCallStatusCode = 5;
  static const int unexpectedRustCallError = 6;
  static const int unexpectedStaleHandle = 7;
  static const int rustPanic = 8;

  final int errorCode;
  final String? panicMessage;

  const UniffiInternalError(this.errorCode, this.panicMessage);

  static UniffiInternalError panicked(String message) {
    return UniffiInternalError(rustPanic, message);
  }

  @override
  String toString() {
    switch (errorCode) {
      case bufferOverflow:
        return "UniFfi::BufferOverflow";
      case incompleteData:
        return "UniFfi::IncompleteData";
      case unexpectedOptionalTag:
        return "UniFfi::UnexpectedOptionalTag";
      case unexpectedEnumCase:
        return "UniFfi::UnexpectedEnumCase";
      case unexpectedNullPointer:
        return "UniFfi::UnexpectedNullPointer";
      case unexpectedRustCallStatusCode:
        return "UniFfi::UnexpectedRustCallStatusCode";
      case unexpectedRustCallError:
        return "UniFfi::UnexpectedRustCallError";
      case unexpectedStaleHandle:
        return "UniFfi::UnexpectedStaleHandle";
      case rustPanic:
        return "UniFfi::rustPanic: $panicMessage";
      default:
        return "UniFfi::UnknownError: $errorCode";
    }
  }
}

const int CALL_SUCCESS = 0;
const int CALL_ERROR = 1;
const int CALL_UNEXPECTED_ERROR = 2;

final class RustCallStatus extends Struct {
  @Int8()
  external int code;

  external RustBuffer errorBuf;
}

final class RustBuffer extends Struct {
  @Uint64()
  external int capacity;

  @Uint64()
  external int len;

  external Pointer<Uint8> data;

  static RustBuffer alloc(int size) {
    return rustCall((status) => {{.Alloc}}(size, status));
  }

  static RustBuffer fromBytes(Uint8List bytes) {
    final foreign = calloc<ForeignBytes>();
    final data = calloc<Uint8>(bytes.length);
    try {
      data.asTypedList(bytes.length).setAll(0, bytes);
      foreign.ref.len = bytes.length;
      foreign.ref.data = data;
      return rustCall((status) => {{.FromBytes}}(foreign.ref, status));
    } finally {
      calloc.free(data);
      calloc.free(foreign);
    }
  }

  void free() {
    rustCall((status) => {{.Free}}(this, status));
  }

  RustBuffer reserve(int additional) {
    return rustCall((status) => {{.Reserve}}(this, additional, status));
  }

  Uint8List asUint8List() {
    if (data == nullptr || len == 0) {
      return Uint8List(0);
    }
    return data.asTypedList(len);
  }

  @override
  String toString() {
    return "RustBuffer{capacity: $capacity, len: $len, data: $data}";
  }
}

final class ForeignBytes extends Struct {
  @Int32()
  external int len;

  external Pointer<Uint8> data;
}

class LiftRetVal<T> {
  final T value;
  final int bytesRead;

  const LiftRetVal(this.value, this.bytesRead);

  LiftRetVal<T> copyWithOffset(int offset) {
    return LiftRetVal(value, bytesRead + offset);
  }
}

RustBuffer toRustBuffer(Uint8List data) {
  return RustBuffer.fromBytes(data);
}

T liftFromRustBuffer<T>(RustBuffer buf, LiftRetVal<T> Function(Uint8List) read) {
  try {
    return read(buf.asUint8List()).value;
  } finally {
    buf.free();
  }
}

Uint8List createUint8ListFromInt(int value) {
  final list = Uint8List(4);
  list.buffer.asByteData().setInt32(0, value);
  return list;
}

abstract class UniffiRustCallStatusErrorHandler {
  Exception lift(RustBuffer errorBuf);
}

class NullRustCallStatusErrorHandler extends UniffiRustCallStatusErrorHandler {
  @override
  Exception lift(RustBuffer errorBuf) {
    errorBuf.free();
    return UniffiInternalError(UniffiInternalError.unexpectedRustCallError, null);
  }
}

void checkCallStatus(UniffiRustCallStatusErrorHandler errorHandler, Pointer<RustCallStatus> status) {
  final code = status.ref.code;
  if (code == CALL_SUCCESS) {
    return;
  }
  if (code == CALL_ERROR) {
    throw errorHandler.lift(status.ref.errorBuf);
  }
  if (code == CALL_UNEXPECTED_ERROR) {
    if (status.ref.errorBuf.len > 0) {
      throw UniffiInternalError.panicked({{.StringConverter}}.lift(status.ref.errorBuf));
    }
    throw UniffiInternalError.panicked("Rust panic");
  }
  throw UniffiInternalError(UniffiInternalError.unexpectedRustCallStatusCode, "Unexpected RustCallStatus code: $code");
}

T rustCall<T>(T Function(Pointer<RustCallStatus>) callback, [UniffiRustCallStatusErrorHandler? errorHandler]) {
  ensureInitialized();
  final status = calloc<RustCallStatus>();
  try {
    final result = callback(status);
    checkCallStatus(errorHandler ?? NullRustCallStatusErrorHandler(), status);
    return result;
  } finally {
    calloc.free(status);
  }
}

class UniffiHandleMap<T> {
  final Map<int, T> _map = {};
  int _counter = 1;

  int insert(T obj) {
    final handle = _counter;
    _counter += 2;
    _map[handle] = obj;
    return handle;
  }

  T get(int handle) {
    if (!_map.containsKey(handle)) {
      throw UniffiInternalError(UniffiInternalError.unexpectedStaleHandle, "Handle not found: $handle");
    }
    return _map[handle] as T;
  }

  int clone(int handle) {
    return insert(get(handle));
  }

  T remove(int handle) {
    final obj = get(handle);
    _map.remove(handle);
    return obj;
  }
}

typedef UniffiCallbackInterfaceFree = Void Function(Uint64);
typedef UniffiCallbackInterfaceClone = Uint64 Function(Uint64);

`
